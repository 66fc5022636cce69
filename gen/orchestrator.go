package gen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"AvatarElite/ai"
	"AvatarElite/holder"
	"AvatarElite/ledger"
	"AvatarElite/lib/sl"
	"AvatarElite/storage"
)

type DeliveryKind string

const (
	// DeliverPhoto sends a standard inline image.
	DeliverPhoto DeliveryKind = "photo"
	// DeliverDocument sends a lossless file attachment, used for 2k/4k
	// results to dodge Telegram's photo re-compression.
	DeliverDocument DeliveryKind = "document"
	// DeliverText sends plain text, used for backend failures.
	DeliverText DeliveryKind = "text"
)

// Delivery tells the transport what to send back.
type Delivery struct {
	Kind       DeliveryKind
	ImageBytes []byte
	ImageURL   string
	Text       string
	Quality    string
}

// Notifier lets the orchestrator surface mid-flight notices (progress,
// low balance) before the backend call finishes.
type Notifier interface {
	Notify(userId int64, text string)
	LowBalance(userId int64, remaining int)
}

// Request is one billable generation, assembled by the transport layer.
type Request struct {
	UserId      int64
	Prompt      string
	Quality     string
	AspectRatio string
	SessionRefs []holder.ReferenceImage
	Account     *storage.Account
	// ProgressText overrides the default "generating" notice.
	ProgressText string
}

// Orchestrator turns a resolved prompt, reference set and quality tier
// into a backend call. Credits are charged before the call and, by
// default, not refunded when the backend fails.
type Orchestrator struct {
	backend         ai.ImageGenerator
	ledger          *ledger.Ledger
	files           FileFetcher
	notifier        Notifier
	log             *slog.Logger
	refundOnFailure bool
}

func NewOrchestrator(backend ai.ImageGenerator, led *ledger.Ledger, files FileFetcher, notifier Notifier, log *slog.Logger, refundOnFailure bool) *Orchestrator {
	return &Orchestrator{
		backend:         backend,
		ledger:          led,
		files:           files,
		notifier:        notifier,
		log:             log.With(sl.Module("orchestrator")),
		refundOnFailure: refundOnFailure,
	}
}

// Generate runs the whole billable sequence: charge, warn, augment,
// aggregate references, call the backend once and map the outcome to a
// delivery. A non-nil error means no backend call was made; the typed
// *ledger.InsufficientCreditsError signals the top-up path.
func (o *Orchestrator) Generate(ctx context.Context, req *Request) (*Delivery, error) {
	cost := CostForQuality(req.Quality)

	remaining, err := o.ledger.Consume(req.UserId, cost)
	if err != nil {
		return nil, err
	}

	// Surfaced now so the user is not kept waiting behind the backend call
	if remaining < ledger.LowBalanceThreshold {
		o.notifier.LowBalance(req.UserId, remaining)
	}

	if req.ProgressText != "" {
		o.notifier.Notify(req.UserId, req.ProgressText)
	}

	prompt := EnhancePrompt(req.Prompt, req.Quality)
	ratio := ResolveAspectRatio(req.AspectRatio, req.SessionRefs)
	refs := o.buildReferenceSet(ctx, req.UserId, req.SessionRefs, req.Account)

	requestId := uuid.NewString()
	log := o.log.With(
		sl.User(req.UserId),
		slog.String("request", requestId),
		slog.String("quality", req.Quality),
		slog.String("ratio", ratio),
		slog.Int("references", len(refs)),
	)
	log.Info("dispatching generation")

	var result *ai.Result
	if len(refs) > 0 {
		if req.ProgressText == "" {
			o.notifier.Notify(req.UserId, fmt.Sprintf("🎨 Generating with %d references... please wait.", len(refs)))
		}
		result, err = o.backend.GenerateFromImages(ctx, refs, prompt+fidelitySuffix, ratio)
	} else {
		if req.ProgressText == "" {
			o.notifier.Notify(req.UserId, "🎨 Generating your image... please wait.")
		}
		result, err = o.backend.GenerateFromText(ctx, prompt, ratio)
	}

	if err != nil {
		log.Error("backend call failed", sl.Err(err))
		if o.refundOnFailure {
			if refundErr := o.ledger.Add(req.UserId, cost); refundErr != nil {
				log.Error("refunding credits", sl.Err(refundErr))
			}
		}
		// Terminal for this request, the message goes out verbatim
		return &Delivery{
			Kind: DeliverText,
			Text: fmt.Sprintf("❌ Error: %s", err),
		}, nil
	}

	log.Info("generation succeeded")
	kind := DeliverPhoto
	if req.Quality == holder.Quality2K || req.Quality == holder.Quality4K {
		kind = DeliverDocument
	}
	return &Delivery{
		Kind:       kind,
		ImageBytes: result.ImageBytes,
		ImageURL:   result.ImageURL,
		Quality:    req.Quality,
	}, nil
}
