package telemetry_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vpsim/telemetry"
)

var _ = Describe("NewLogger", func() {
	It("builds a sugared logger at a valid level", func() {
		logger, err := telemetry.NewLogger("debug")
		Expect(err).NotTo(HaveOccurred())
		Expect(logger).NotTo(BeNil())
		Expect(func() { logger.Infow("elaborated platform", "caches", 2) }).NotTo(Panic())
	})

	It("accepts every documented level", func() {
		for _, lvl := range []string{"debug", "info", "warn", "error"} {
			_, err := telemetry.NewLogger(lvl)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("rejects an unknown level", func() {
		_, err := telemetry.NewLogger("bogus")
		Expect(err).To(HaveOccurred())
	})
})
