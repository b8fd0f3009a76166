package leadsrv

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/realtor/pkg/ai/llm"
	"github.com/Abraxas-365/realtor/pkg/ai/llm/agentx"
	"github.com/Abraxas-365/realtor/pkg/ai/llm/memoryx"
	"github.com/Abraxas-365/realtor/pkg/ai/llm/toolx"
	"github.com/Abraxas-365/realtor/pkg/crm"
	"github.com/Abraxas-365/realtor/pkg/lead"
	"github.com/Abraxas-365/realtor/pkg/logx"
	"github.com/Abraxas-365/realtor/pkg/places"
	"github.com/google/uuid"
)

// Notifier delivers payloads to CRM webhooks
type Notifier interface {
	Deliver(ctx context.Context, url string, payload any) error
}

// PhotoSource lists photo URLs for an address
type PhotoSource interface {
	Photos(ctx context.Context, address string) ([]string, error)
}

// Locator resolves a contact's CRM location
type Locator interface {
	LocationID(ctx context.Context, email, phone string) (string, error)
}

type Options struct {
	Labels          memoryx.Labels
	RecentPairs     int
	MaxIterations   int
	ClipBudget      int
	ReplyWebhookURL string
	ClipWebhookURL  string
	AgentOptions    []llm.Option
	RefineOptions   []llm.Option
}

// LeadService answers lead messages arriving from CRM webhooks
type LeadService struct {
	sessions     *memoryx.Sessions
	agentLLM     *llm.Client
	refineLLM    *llm.Client
	tools        lead.Toolset
	photos       PhotoSource
	notifier     Notifier
	locator      Locator
	interactions lead.InteractionRepository
	opts         Options
}

// NewLeadService wires the service. photos, notifier, locator and
// interactions may be nil.
func NewLeadService(
	sessions *memoryx.Sessions,
	agentLLM *llm.Client,
	refineLLM *llm.Client,
	tools lead.Toolset,
	photos PhotoSource,
	notifier Notifier,
	locator Locator,
	interactions lead.InteractionRepository,
	opts Options,
) *LeadService {
	if opts.Labels.User == "" || opts.Labels.Agent == "" {
		opts.Labels = memoryx.DefaultLabels
	}
	if opts.ClipBudget <= 0 {
		opts.ClipBudget = 8000
	}
	return &LeadService{
		sessions:     sessions,
		agentLLM:     agentLLM,
		refineLLM:    refineLLM,
		tools:        tools,
		photos:       photos,
		notifier:     notifier,
		locator:      locator,
		interactions: interactions,
		opts:         opts,
	}
}

// SendMessage answers the lead's message. The transcript's newest exchanges
// are merged into the session memory, the agent gathers facts with tools,
// and the rough answer is rewritten in the assistant's voice.
func (s *LeadService) SendMessage(ctx context.Context, req lead.WebhookRequest) (*lead.MessageResponse, error) {
	key, err := req.SessionKey()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CustomData.Message) == "" {
		return nil, lead.ErrMissingMessage()
	}

	query := req.Query()
	address := strings.TrimSpace(req.CustomData.Address)

	var (
		reply     string
		distances []string
	)
	err = s.sessions.With(ctx, key, func(log *memoryx.Log) error {
		users, agents := memoryx.ParseTranscript(req.CustomData.MessageHistory, s.opts.Labels)
		recent := log.AppendRecent(users, agents, s.opts.RecentPairs)

		agent := agentx.New(s.agentLLM,
			agentx.WithTools(s.tools.For(address)),
			agentx.WithOptions(s.opts.AgentOptions...),
			agentx.WithMaxAutoIterations(s.opts.MaxIterations),
		)
		eval, err := agent.Run(ctx, lead.AgentPrompt, log, query)
		if err != nil {
			return err
		}

		refined, err := s.refineLLM.Chat(ctx,
			memoryx.AssembleWithSystem(lead.RefinePrompt(eval.FinalResponse), recent, query),
			s.opts.RefineOptions...,
		)
		if err != nil {
			return lead.ErrRegistry.New(lead.CodeReplyFailed).WithCause(err)
		}

		reply = refined.Message.Content
		distances = distancesFrom(eval)

		logx.WithFields(logx.Fields{
			"session":    key,
			"turns":      log.Len(),
			"length":     log.Length(),
			"tool_calls": len(eval.ToolOutputs()),
			"tokens":     eval.Usage.Add(refined.Usage).TotalTokens,
		}).Info("answered lead message")
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := &lead.MessageResponse{
		BotResponse: reply,
		Photos:      s.photosFor(ctx, address),
		Distances:   distances,
		SessionID:   key,
	}
	if resp.Photos == nil {
		resp.Photos = []string{}
	}
	if resp.Distances == nil {
		resp.Distances = []string{}
	}

	s.deliver(ctx, s.opts.ReplyWebhookURL, crm.ReplyPayload{
		BotResponse: reply,
		Phone:       req.Phone,
		Email:       req.Email,
	})
	s.record(ctx, key, req, reply)

	return resp, nil
}

// ClipHistory shortens the transcript from its oldest end so that the
// workflow's prompt and the history fit the clip budget.
func (s *LeadService) ClipHistory(ctx context.Context, req lead.WebhookRequest) (*lead.ClipResponse, error) {
	history := memoryx.ClipTranscript(req.CustomData.MessageHistory, req.CustomData.OpenAIPrompt, s.opts.ClipBudget)

	s.deliver(ctx, s.opts.ClipWebhookURL, crm.ClipPayload{
		MessageHistory: history,
		Phone:          req.Phone,
		Email:          req.Email,
	})

	return &lead.ClipResponse{MessageHistory: history}, nil
}

// Session returns the retained conversation for key
func (s *LeadService) Session(ctx context.Context, key string) (*lead.SessionView, error) {
	log, err := s.sessions.Snapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	if log.Len() == 0 {
		return nil, lead.ErrSessionNotFound(key)
	}
	view := lead.NewSessionView(key, log)
	return &view, nil
}

// EndSession discards the conversation for key
func (s *LeadService) EndSession(ctx context.Context, key string) error {
	return s.sessions.End(ctx, key)
}

// Interactions lists the recorded exchanges for key, newest first
func (s *LeadService) Interactions(ctx context.Context, key string, limit int) ([]lead.Interaction, error) {
	if s.interactions == nil {
		return []lead.Interaction{}, nil
	}
	return s.interactions.FindBySession(ctx, key, limit)
}

// LocationID looks up the CRM location for a contact
func (s *LeadService) LocationID(ctx context.Context, email, phone string) (string, error) {
	if s.locator == nil {
		return "", lead.ErrRegistry.New(lead.CodeNotConfigured).WithDetail("feature", "crm lookup")
	}
	return s.locator.LocationID(ctx, email, phone)
}

func (s *LeadService) photosFor(ctx context.Context, address string) []string {
	if s.photos == nil || address == "" {
		return nil
	}
	photos, err := s.photos.Photos(ctx, address)
	if err != nil {
		logx.WithFields(logx.Fields{
			"address": address,
			"error":   err.Error(),
		}).Warn("could not load listing photos")
		return nil
	}
	return photos
}

func (s *LeadService) deliver(ctx context.Context, url string, payload any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Deliver(ctx, url, payload); err != nil {
		logx.WithField("error", err.Error()).Error("webhook delivery failed")
	}
}

func (s *LeadService) record(ctx context.Context, key string, req lead.WebhookRequest, reply string) {
	if s.interactions == nil {
		return
	}
	err := s.interactions.Save(ctx, &lead.Interaction{
		ID:         uuid.NewString(),
		SessionKey: key,
		Email:      req.Email,
		Phone:      req.Phone,
		Message:    req.CustomData.Message,
		Reply:      reply,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		logx.WithFields(logx.Fields{
			"session": key,
			"error":   err.Error(),
		}).Warn("could not record interaction")
	}
}

// distancesFrom collects the successful find_distance answers of a run
func distancesFrom(eval *agentx.AgentEvaluation) []string {
	var out []string
	for _, o := range eval.ToolOutputs() {
		if o.Call.Function.Name != lead.ToolFindDistance {
			continue
		}
		if o.Reply == "" || o.Reply == places.DistanceNotFoundMessage ||
			strings.HasPrefix(o.Reply, toolx.ToolErrorPrefix) {
			continue
		}
		out = append(out, o.Reply)
	}
	return out
}
