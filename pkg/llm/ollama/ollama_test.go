package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm/ollama"
)

type recordedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Stream bool `json:"stream"`
}

var _ = Describe("Client", func() {
	It("sends history plus prompt as a non-streaming chat request", func() {
		var got recordedRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())

			_ = json.NewEncoder(w).Encode(map[string]any{
				"message": map[string]string{"role": "assistant", "content": "condensed"},
				"done":    true,
			})
		}))
		defer server.Close()

		client := ollama.NewClient(ollama.Config{BaseURL: server.URL, Model: "llama3.2"})

		history := []llm.Turn{
			llm.NewTurn(llm.RoleModel, "earlier candidate", 0),
		}
		text, err := client.Generate(context.Background(), "condense this", history)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("condensed"))

		Expect(got.Model).To(Equal("llama3.2"))
		Expect(got.Stream).To(BeFalse())
		Expect(got.Messages).To(HaveLen(2))
		Expect(got.Messages[0].Role).To(Equal("assistant"))
		Expect(got.Messages[0].Content).To(Equal("earlier candidate"))
		Expect(got.Messages[1].Role).To(Equal("user"))
		Expect(got.Messages[1].Content).To(Equal("condense this"))
	})

	It("reports an unreachable backend as ErrBackendUnavailable", func() {
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		server.Close() // refuse connections

		client := ollama.NewClient(ollama.Config{BaseURL: server.URL})
		_, err := client.Generate(context.Background(), "hi", nil)
		Expect(errors.Is(err, llm.ErrBackendUnavailable)).To(BeTrue())
	})

	It("maps context-limit rejections to ErrInputTooLong", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"input exceeds context window of 4096 tokens"}`))
		}))
		defer server.Close()

		client := ollama.NewClient(ollama.Config{BaseURL: server.URL})
		_, err := client.Generate(context.Background(), "hi", nil)
		Expect(errors.Is(err, llm.ErrInputTooLong)).To(BeTrue())
	})

	It("treats an in-band error field as backend unavailability", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
		}))
		defer server.Close()

		client := ollama.NewClient(ollama.Config{BaseURL: server.URL})
		_, err := client.Generate(context.Background(), "hi", nil)
		Expect(errors.Is(err, llm.ErrBackendUnavailable)).To(BeTrue())
	})
})
