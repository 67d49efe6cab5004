package logger_test

import (
	"bytes"
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"scribe.app/engine/common/logger"
)

var _ = Describe("LogFields", func() {
	It("merges newer non-empty values over existing ones", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			RunID:     logger.Ptr(int64(7)),
			Component: "scribe.worker",
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{
			Stage: logger.Ptr("extraction"),
		})

		fields := logger.GetLogFields(ctx)
		Expect(*fields.RunID).To(Equal(int64(7)))
		Expect(*fields.Stage).To(Equal("extraction"))
		Expect(fields.Component).To(Equal("scribe.worker"))
	})

	It("returns empty fields for a bare context", func() {
		Expect(logger.GetLogFields(context.Background())).To(Equal(logger.LogFields{}))
	})
})

var _ = Describe("TraceHandler", func() {
	It("adds context fields to every record", func() {
		var buf bytes.Buffer
		log := slog.New(logger.NewTraceHandler(slog.NewTextHandler(&buf, nil)))

		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			RunID:        logger.Ptr(int64(42)),
			TemplateType: logger.Ptr("video"),
			Component:    "scribe.assemble.engine",
		})
		log.InfoContext(ctx, "assembled")

		Expect(buf.String()).To(ContainSubstring("run_id=42"))
		Expect(buf.String()).To(ContainSubstring("template_type=video"))
		Expect(buf.String()).To(ContainSubstring("component=scribe.assemble.engine"))
	})
})

var _ = Describe("Truncate", func() {
	It("leaves short strings alone and truncates long ones", func() {
		Expect(logger.Truncate("abc", 5)).To(Equal("abc"))
		Expect(logger.Truncate("abcdef", 3)).To(Equal("abc..."))
	})
})
