package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"luxride/config"
	"luxride/services/booking"

	"github.com/hibiken/asynq"
)

const (
	TypeSessionRemove = "session:remove"
	TypeSessionSweep  = "session:sweep"
)

type removePayload struct {
	BookingID string `json:"bookingId"`
}

// AsynqCleanupScheduler queues the delayed removal of confirmed sessions.
// Implements booking.CleanupScheduler.
type AsynqCleanupScheduler struct {
	client *asynq.Client
}

func NewAsynqCleanupScheduler() *AsynqCleanupScheduler {
	return &AsynqCleanupScheduler{
		client: asynq.NewClient(redisOpt()),
	}
}

func (s *AsynqCleanupScheduler) ScheduleRemoval(bookingID string, delay time.Duration) error {
	payload, err := json.Marshal(removePayload{BookingID: bookingID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeSessionRemove, payload)
	_, err = s.client.Enqueue(task, asynq.ProcessIn(delay))
	return err
}

func redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitCleanupWorker runs the async worker and the periodic sweep in the
// background. The lazy sweep inside the flow covers correctness if this
// worker is down; the queue just keeps memory tidy sooner.
func InitCleanupWorker(flow *booking.DefaultBookingFlowService, store *booking.SessionStore) {
	srv := asynq.NewServer(
		redisOpt(),
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSessionRemove, func(ctx context.Context, t *asynq.Task) error {
		var p removePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		flow.RemoveIfConfirmed(p.BookingID)
		return nil
	})
	mux.HandleFunc(TypeSessionSweep, func(ctx context.Context, t *asynq.Task) error {
		if n := store.SweepStale(booking.StaleConfirmedTTL); n > 0 {
			log.Printf("[CleanupWorker] swept %d stale confirmed sessions", n)
		}
		return nil
	})

	go func() {
		log.Println("[CleanupWorker] starting async worker...")
		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[CleanupWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)
				if attempts == maxAttempts {
					log.Fatal("[CleanupWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	scheduler := asynq.NewScheduler(redisOpt(), nil)
	if _, err := scheduler.Register("@every 15m", asynq.NewTask(TypeSessionSweep, nil)); err != nil {
		log.Printf("[CleanupWorker] failed to register sweep task: %v", err)
		return
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("[CleanupWorker] scheduler stopped: %v", err)
		}
	}()
}
