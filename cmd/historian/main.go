// cmd/historian/main.go is an asynchronous historian service that pops accepted
// player intents from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/cardtable/unoserv/internal/cache"
	"github.com/cardtable/unoserv/internal/database"
)

// HistorianService encapsulates the Redis + DB logic for capturing intent
// records and completing rooms whose rounds went quiet.
type HistorianService struct {
	redisClient *redis.Client
	batchSize   int
	flushDelay  time.Duration
	inactivity  time.Duration // duration until an in-progress room is closed out
	lastSeen    sync.Map      // map[string]time.Time keyed by room code

	batchMu  sync.Mutex
	batch    []cache.IntentRecord
	ctx      context.Context
	cancelFn context.CancelFunc

	// persistFn writes one drained batch; swapped out in tests.
	persistFn func(ctx context.Context, batch []cache.IntentRecord) error
}

// NewHistorianService constructs a HistorianService from environment variables
// or defaults.
func NewHistorianService() *HistorianService {
	batchSize := cache.GetEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := cache.GetEnvInt("HISTORIAN_FLUSH_MS", 500)
	inactivitySec := cache.GetEnvInt("ROOM_INACTIVITY_TIMEOUT_SEC", 600)

	rdb := redis.NewClient(&redis.Options{
		Addr: cache.GetEnv("REDIS_ADDR", "localhost:6379"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	hs := &HistorianService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]cache.IntentRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
	hs.persistFn = hs.persistBatch
	return hs
}

// Run starts the two main loops:
//  1. A loop that reads from the Redis queue, accumulates records in a batch,
//     and flushes them to the DB.
//  2. A periodic inactivity check that completes rooms stuck in progress.
func (hs *HistorianService) Run() {
	database.ConnectDB()

	go hs.readRedisLoop()
	go hs.inactivityLoop()

	log.Println("unoserv-historian service started.")
	<-hs.ctx.Done()
	log.Println("unoserv-historian shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve records from the queue.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	queueName := cache.GetEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// BLPop with a 3-second timeout so context cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var record cache.IntentRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid intent record: %v\n", err)
				continue
			}

			hs.lastSeen.Store(record.RoomCode, time.Now())
			hs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record to the in-memory batch and flushes if the
// threshold is reached.
func (hs *HistorianService) appendToBatch(record cache.IntentRecord) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.batch = append(hs.batch, record)
	if len(hs.batch) >= hs.batchSize {
		hs.flushLocked()
	}
}

// flushBatchToDB flushes the current batch in a single transaction.
func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.flushLocked()
}

// flushLocked drains the batch. Caller holds batchMu; both the ticker flush
// and the size-triggered flush funnel through here so batchMu is never
// re-locked.
func (hs *HistorianService) flushLocked() {
	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.IntentRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]

	if err := hs.persistFn(context.Background(), batchCopy); err != nil {
		log.Printf("[ERROR] flush batch: %v\n", err)
	} else {
		log.Printf("Flushed %d intents to DB.\n", len(batchCopy))
	}
}

// persistBatch writes one batch to the database in a single transaction.
func (hs *HistorianService) persistBatch(ctx context.Context, batch []cache.IntentRecord) error {
	return beginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batch {
			if err := insertIntentTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertIntentTx: %w", err)
			}
		}
		return nil
	})
}

// inactivityLoop periodically completes rooms that went quiet mid-round.
// A crashed server can leave a room in_progress forever; this is the sweep
// that closes them out.
func (hs *HistorianService) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			hs.lastSeen.Range(func(key, val interface{}) bool {
				code, ok1 := key.(string)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > hs.inactivity {
					hs.markRoomCompleted(code)
					hs.lastSeen.Delete(code)
				}
				return true
			})
		}
	}
}

// markRoomCompleted closes out a room still marked in_progress.
func (hs *HistorianService) markRoomCompleted(code string) {
	ctx := context.Background()
	err := beginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE rooms
			SET status = 'completed'
			WHERE code = $1 AND status = 'in_progress'
		`
		_, e := tx.Exec(ctx, q, code)
		return e
	})
	if err != nil {
		log.Printf("failed to mark room %s completed: %v", code, err)
	} else {
		log.Printf("Marked room %s as 'completed' due to inactivity.", code)
	}
}

// insertIntentTx inserts a single intent record into the room_actions table.
func insertIntentTx(ctx context.Context, tx pgx.Tx, rec cache.IntentRecord) error {
	jsonPayload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO room_actions (
			room_code, username, intent, payload, occurred_at
		) VALUES ($1, $2, $3, $4, to_timestamp($5 / 1000.0))
	`
	_, err = tx.Exec(ctx, q, rec.RoomCode, rec.Username, rec.Intent, jsonPayload, rec.Timestamp)
	return err
}

// beginTxFunc starts a transaction on the pool, calls f with it, and commits
// or rolls back as needed.
func beginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}

// Stop gracefully stops the historian service.
func (hs *HistorianService) Stop() {
	hs.cancelFn()
}

func main() {
	hs := NewHistorianService()
	go hs.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	hs.Stop()
	log.Println("Historian shutdown complete.")
}
