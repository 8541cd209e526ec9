package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm/openai"
)

var _ = Describe("Client", func() {
	It("sends a bearer-authorized chat completion request", func() {
		var auth string
		var got struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())

			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"role": "assistant", "content": "done"}},
				},
			})
		}))
		defer server.Close()

		client := openai.NewClient(openai.Config{
			BaseURL: server.URL,
			APIKey:  "sk-test",
			Model:   "gpt-4o-mini",
		})

		history := []llm.Turn{llm.NewTurn(llm.RoleModel, "previous", 0)}
		text, err := client.Generate(context.Background(), "next", history)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("done"))

		Expect(auth).To(Equal("Bearer sk-test"))
		Expect(got.Model).To(Equal("gpt-4o-mini"))
		Expect(got.Messages).To(HaveLen(2))
		Expect(got.Messages[0].Role).To(Equal("assistant"))
		Expect(got.Messages[1].Role).To(Equal("user"))
	})

	It("maps context_length_exceeded to ErrInputTooLong", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"This model's maximum context length is exceeded","code":"context_length_exceeded"}}`))
		}))
		defer server.Close()

		client := openai.NewClient(openai.Config{BaseURL: server.URL})
		_, err := client.Generate(context.Background(), "hi", nil)
		Expect(errors.Is(err, llm.ErrInputTooLong)).To(BeTrue())
	})

	It("reports other non-200 statuses as ErrBackendUnavailable", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := openai.NewClient(openai.Config{BaseURL: server.URL})
		_, err := client.Generate(context.Background(), "hi", nil)
		Expect(errors.Is(err, llm.ErrBackendUnavailable)).To(BeTrue())
	})
})
