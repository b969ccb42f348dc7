package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/claim-processor/internal/core/domain"
	"github.com/kirillkom/claim-processor/internal/infrastructure/resilience"
)

const (
	claimIDHeader = "Claim-Id"
	workerGroup   = "claim-workers"
)

// Queue carries claim submissions to workers and decisions back out.
type Queue struct {
	conn            *nats.Conn
	submitSubject   string
	decisionSubject string
	executor        *resilience.Executor
	logger          *slog.Logger
}

type Options struct {
	SubmitSubject        string
	DecisionSubject      string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if options.SubmitSubject == "" || options.DecisionSubject == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "nats queue", errors.New("submit and decision subjects are required"))
	}

	conn, err := nats.Connect(
		url,
		nats.Name("claim-processor"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats.disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats.reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:            conn,
		submitSubject:   options.SubmitSubject,
		decisionSubject: options.DecisionSubject,
		executor:        options.ResilienceExecutor,
		logger:          logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishClaimSubmitted(ctx context.Context, submission domain.ClaimSubmission) error {
	msg, err := newClaimMsg(q.submitSubject, submission.ClaimID, submission)
	if err != nil {
		return err
	}
	return q.publish(ctx, "nats.publish_submitted", msg)
}

func (q *Queue) PublishClaimDecided(ctx context.Context, response *domain.ClaimProcessingResponse) error {
	if response == nil {
		return domain.WrapError(domain.ErrInvalidInput, "publish claim decided", errors.New("nil response"))
	}
	msg, err := newClaimMsg(q.decisionSubject, response.ProcessingMetadata.ClaimID, response)
	if err != nil {
		return err
	}
	return q.publish(ctx, "nats.publish_decided", msg)
}

func (q *Queue) publish(ctx context.Context, operation string, msg *nats.Msg) error {
	call := func(context.Context) error {
		if err := q.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeClaimSubmitted blocks until ctx ends, then drains in-flight messages.
func (q *Queue) SubscribeClaimSubmitted(ctx context.Context, handler func(context.Context, domain.ClaimSubmission) error) error {
	sub, err := q.conn.QueueSubscribe(q.submitSubject, workerGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}

		submission, err := decodeSubmission(msg.Data)
		if err != nil {
			q.logger.Error("nats.message_rejected", "subject", msg.Subject, "claim_id", msg.Header.Get(claimIDHeader), "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, submission); err != nil {
			q.logger.Error("nats.handler_failed", "claim_id", submission.ClaimID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func newClaimMsg(subject, claimID string, payload any) (*nats.Msg, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", subject, err)
	}
	msg := nats.NewMsg(subject)
	msg.Header.Set(claimIDHeader, claimID)
	msg.Data = data
	return msg, nil
}

func decodeSubmission(data []byte) (domain.ClaimSubmission, error) {
	var submission domain.ClaimSubmission
	if err := json.Unmarshal(data, &submission); err != nil {
		return domain.ClaimSubmission{}, domain.WrapError(domain.ErrInvalidInput, "decode claim submission", err)
	}
	if submission.ClaimID == "" || len(submission.Documents) == 0 {
		return domain.ClaimSubmission{}, domain.WrapError(domain.ErrInvalidInput, "decode claim submission", errors.New("claim id and documents are required"))
	}
	return submission, nil
}
