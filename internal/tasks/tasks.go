package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"weddingplanners/api/internal/config"
	"weddingplanners/api/internal/email"
	"weddingplanners/api/internal/models"
)

// TaskType defines the type of a background task.
const (
	TypeInquiryNotify = "inquiry:notify"
)

// MailKindInquiryNotify tags notification emails for the mock sender.
const MailKindInquiryNotify = "inquiry_notify"

const (
	queueDefault      = "default"
	notifyMaxRetry    = 5
	notifyTaskTimeout = 30 * time.Second
)

// --- Task Client (Enqueuing tasks) ---

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewClient creates an asynq client on the configured Redis.
func NewClient(cfg *config.Config) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// InquiryNotifyPayload carries a stored inquiry to the worker.
type InquiryNotifyPayload struct {
	To         string    `json:"to"`
	InquiryID  string    `json:"inquiry_id"`
	PlannerID  *string   `json:"planner_id,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      *string   `json:"phone,omitempty"`
	EventDate  *string   `json:"event_date,omitempty"`
	GuestCount *int      `json:"guest_count,omitempty"`
	Message    *string   `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewInquiryNotifyTask builds the notification task for a stored inquiry.
func NewInquiryNotifyTask(to, id string, inquiry *models.Inquiry) (*asynq.Task, error) {
	payload, err := json.Marshal(InquiryNotifyPayload{
		To:         to,
		InquiryID:  id,
		PlannerID:  inquiry.PlannerID,
		Name:       inquiry.Name,
		Email:      inquiry.Email,
		Phone:      inquiry.Phone,
		EventDate:  inquiry.EventDate,
		GuestCount: inquiry.GuestCount,
		Message:    inquiry.Message,
		CreatedAt:  inquiry.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inquiry notify payload: %w", err)
	}
	return asynq.NewTask(TypeInquiryNotify, payload,
		asynq.Queue(queueDefault),
		asynq.MaxRetry(notifyMaxRetry),
		asynq.Timeout(notifyTaskTimeout),
	), nil
}

// InquiryNotifier enqueues a notification for each stored inquiry.
type InquiryNotifier struct {
	client Enqueuer
	to     string
	log    zerolog.Logger
}

// NewInquiryNotifier creates a notifier that mails every stored inquiry to to.
func NewInquiryNotifier(client Enqueuer, to string, log zerolog.Logger) *InquiryNotifier {
	return &InquiryNotifier{client: client, to: to, log: log.With().Str("component", "notifier").Logger()}
}

// NotifyInquiry enqueues the notification task.
func (n *InquiryNotifier) NotifyInquiry(ctx context.Context, id string, inquiry *models.Inquiry) error {
	task, err := NewInquiryNotifyTask(n.to, id, inquiry)
	if err != nil {
		return err
	}
	info, err := n.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeInquiryNotify, err)
	}
	n.log.Debug().Str("task_id", info.ID).Str("inquiry_id", id).Msg("inquiry notification queued")
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	log         zerolog.Logger
}

func NewTaskProcessor(cfg *config.Config, emailSender email.Sender, log zerolog.Logger) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		log:         log.With().Str("component", "worker").Logger(),
	}
}

// NewServer configures an asynq server on the configured Redis.
func NewServer(cfg *config.Config, log zerolog.Logger) *asynq.Server {
	return asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Queues: map[string]int{
				queueDefault: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).Str("task_type", task.Type()).Msg("task failed")
			}),
		},
	)
}

// NewServeMux registers the task handlers of p.
func NewServeMux(p *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeInquiryNotify, p.HandleInquiryNotifyTask)
	return mux
}

// --- Task Handlers ---

var inquiryEmailTemplate = template.Must(template.New("inquiry").Funcs(template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return "-"
		}
		return *s
	},
}).Parse(`A new inquiry has arrived.

Inquiry:    {{.InquiryID}}
Planner:    {{deref .PlannerID}}
Name:       {{.Name}}
Email:      {{.Email}}
Phone:      {{deref .Phone}}
Event date: {{deref .EventDate}}
Guests:     {{with .GuestCount}}{{.}}{{else}}-{{end}}
Received:   {{.CreatedAt.Format "2006-01-02 15:04 MST"}}

{{deref .Message}}
`))

// HandleInquiryNotifyTask renders and sends the notification for one inquiry.
func (p *TaskProcessor) HandleInquiryNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload InquiryNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal inquiry notify payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("inquiry notify payload has no recipient: %w", asynq.SkipRetry)
	}

	var body strings.Builder
	if err := inquiryEmailTemplate.Execute(&body, payload); err != nil {
		return fmt.Errorf("failed to render inquiry email: %v: %w", err, asynq.SkipRetry)
	}

	msg := email.Message{
		From:    p.cfg.SmtpFromAddress,
		To:      []string{payload.To},
		Subject: "New inquiry from " + email.SanitizeHeader(payload.Name),
		Kind:    MailKindInquiryNotify,
		Body:    body.String(),
	}
	if err := p.emailSender.Send(ctx, msg.To, msg.Subject, msg.Bytes()); err != nil {
		p.log.Error().Err(err).Str("inquiry_id", payload.InquiryID).Msg("inquiry email failed, will retry")
		return err
	}

	p.log.Info().Str("inquiry_id", payload.InquiryID).Str("to", payload.To).Msg("inquiry email sent")
	return nil
}
