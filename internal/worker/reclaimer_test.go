package worker_test

import (
	"context"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"scribe.app/engine/internal/queue"
	"scribe.app/engine/internal/worker"
)

var _ = Describe("RedisReclaimer", func() {
	It("hands stale pending briefs back to the processor", func() {
		ctx := context.Background()
		mr := miniredis.RunT(GinkgoT())
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		consumer, err := queue.NewRedisConsumer(ctx, client, queue.ConsumerConfig{
			Stream:    "briefs",
			Group:     "workers",
			Consumer:  "crashed-worker",
			BatchSize: 10,
			Block:     -1,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(queue.NewRedisProducer(client, "briefs", nil).Enqueue(ctx, queue.BriefMessage{RunID: 55})).To(Succeed())
		delivered, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(delivered).To(HaveLen(1))

		var (
			mu        sync.Mutex
			reclaimed []int64
		)
		processor := func(ctx context.Context, msg queue.Message) error {
			mu.Lock()
			reclaimed = append(reclaimed, msg.RunID)
			mu.Unlock()
			return consumer.Ack(ctx, msg)
		}

		reclaimer := worker.NewRedisReclaimer(client, worker.RedisReclaimerConfig{
			Stream:    "briefs",
			Group:     "workers",
			Consumer:  "reclaimer",
			Interval:  10 * time.Millisecond,
			BatchSize: 10,
		}, consumer, processor)
		go reclaimer.Run(ctx)

		Eventually(func() []int64 {
			mu.Lock()
			defer mu.Unlock()
			return append([]int64(nil), reclaimed...)
		}).Should(ContainElement(int64(55)))
		reclaimer.Stop()

		pending, err := client.XPending(ctx, "briefs", "workers").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(BeZero())
	})

	It("abandons briefs past the delivery limit instead of reprocessing them", func() {
		ctx := context.Background()
		mr := miniredis.RunT(GinkgoT())
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		consumer, err := queue.NewRedisConsumer(ctx, client, queue.ConsumerConfig{
			Stream:    "briefs",
			Group:     "workers",
			Consumer:  "crashed-worker",
			DLQStream: "briefs_dlq",
			BatchSize: 10,
			Block:     -1,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(queue.NewRedisProducer(client, "briefs", nil).Enqueue(ctx, queue.BriefMessage{RunID: 77})).To(Succeed())
		_, err = consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		var (
			mu        sync.Mutex
			processed int
			abandoned []string
		)
		processor := func(context.Context, queue.Message) error {
			mu.Lock()
			processed++
			mu.Unlock()
			return nil
		}

		reclaimer := worker.NewRedisReclaimer(client, worker.RedisReclaimerConfig{
			Stream:        "briefs",
			Group:         "workers",
			Consumer:      "reclaimer",
			Interval:      10 * time.Millisecond,
			BatchSize:     10,
			MaxDeliveries: 1,
		}, consumer, processor).WithAbandon(func(ctx context.Context, msg queue.Message, reason string) error {
			mu.Lock()
			abandoned = append(abandoned, reason)
			mu.Unlock()
			return consumer.SendDLQ(ctx, msg, reason)
		})
		go reclaimer.Run(ctx)

		Eventually(func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), abandoned...)
		}).Should(ContainElement(ContainSubstring("without acknowledgement")))
		reclaimer.Stop()

		mu.Lock()
		Expect(processed).To(BeZero())
		mu.Unlock()
		Expect(client.XLen(ctx, "briefs_dlq").Val()).To(BeNumerically(">=", 1))
	})
})
