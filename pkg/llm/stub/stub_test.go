package stub_test

import (
	"context"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rhoadesScholar/llm-experiments/pkg/distill"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm/stub"
)

func TestStub(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Stub Suite")
}

var _ = Describe("Client", func() {
	It("is deterministic", func() {
		client := stub.NewClient()
		first, err := client.Generate(context.Background(), "What would you like to know about yourself?", nil)
		Expect(err).NotTo(HaveOccurred())

		second, err := client.Generate(context.Background(), "What would you like to know about yourself?", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("answers the seed question with an introspective response", func() {
		client := stub.NewClient()
		text, err := client.Generate(context.Background(), "What would you like to know about yourself?", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.ToLower(text)).To(ContainSubstring("cognition"))
	})

	Describe("condensation", func() {
		It("echoes the payload verbatim in echo mode", func() {
			client := stub.NewClient(stub.WithEcho(0))
			prompt := distill.PromptInstruction + "\n\npayload to keep intact"

			text, err := client.Generate(context.Background(), prompt, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("payload to keep intact"))
		})

		It("truncates the echo to the configured limit", func() {
			client := stub.NewClient(stub.WithEcho(7))
			prompt := distill.PromptInstruction + "\n\npayload to keep intact"

			text, err := client.Generate(context.Background(), prompt, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("payload"))
		})

		It("keeps the last full sentence outside echo mode", func() {
			client := stub.NewClient()
			prompt := distill.ResponseInstruction + "\n\nFirst thought. Second thought. Final thought."

			text, err := client.Generate(context.Background(), prompt, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Final thought."))
		})
	})
})
