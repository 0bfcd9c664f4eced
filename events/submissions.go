package events

import (
	"context"
	"errors"
	"strings"

	"newsmint/logger"
	"newsmint/news"
	"newsmint/types"

	"go.uber.org/zap"
)

// Submitter is the part of the news service the submission consumer drives
type Submitter interface {
	SubmitIfAbsent(ctx context.Context, url, address string) (*news.SubmitResult, error)
}

// NewSubmissionHandler builds the handler for the submissions topic.
// Undecodable messages and pages that cannot be crawled are marked and skipped;
// storage failures leave the message unmarked for redelivery.
func NewSubmissionHandler(svc Submitter, log *zap.Logger) *TypedMessageHandler[types.SubmissionMessage] {
	log = logger.OrNop(log)
	return &TypedMessageHandler[types.SubmissionMessage]{
		Validate: func(msg *types.SubmissionMessage) bool {
			if strings.TrimSpace(msg.URL) == "" || strings.TrimSpace(msg.DagAddress) == "" {
				log.Warn("submission missing url or dag_address, skipping")
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *types.SubmissionMessage) error {
			res, err := svc.SubmitIfAbsent(ctx, msg.URL, msg.DagAddress)
			switch {
			case err == nil:
				log.Info("submission processed",
					zap.String("url", msg.URL),
					zap.String("id", res.ID),
					zap.Bool("created", res.Created))
				return nil
			case errors.Is(err, news.ErrCrawlFailure), errors.Is(err, news.ErrMissingAddress):
				log.Warn("submission rejected", zap.String("url", msg.URL), zap.Error(err))
				return nil
			default:
				return err
			}
		},
		AlwaysMark: true,
	}
}
