package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm/anthropic"
)

var _ = Describe("Client", func() {
	It("folds system turns into the request's system field", func() {
		var apiKey, version string
		var got struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			System    string `json:"system"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			apiKey = r.Header.Get("x-api-key")
			version = r.Header.Get("anthropic-version")
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())

			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": []map[string]string{{"type": "text", "text": "reply"}},
			})
		}))
		defer server.Close()

		client := anthropic.NewClient(anthropic.Config{
			BaseURL: server.URL,
			APIKey:  "key-test",
		})

		history := []llm.Turn{
			llm.NewTurn(llm.RoleSystem, "act concisely", 0),
			llm.NewTurn(llm.RoleModel, "earlier reply", 1),
		}
		text, err := client.Generate(context.Background(), "question", history)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("reply"))

		Expect(apiKey).To(Equal("key-test"))
		Expect(version).To(Equal("2023-06-01"))
		Expect(got.System).To(Equal("act concisely"))
		Expect(got.MaxTokens).To(BeNumerically(">", 0))
		Expect(got.Messages).To(HaveLen(2))
		Expect(got.Messages[0].Role).To(Equal("assistant"))
		Expect(got.Messages[1].Role).To(Equal("user"))
	})

	It("maps prompt-too-long rejections to ErrInputTooLong", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"prompt is too long: 250000 tokens"}}`))
		}))
		defer server.Close()

		client := anthropic.NewClient(anthropic.Config{BaseURL: server.URL})
		_, err := client.Generate(context.Background(), "hi", nil)
		Expect(errors.Is(err, llm.ErrInputTooLong)).To(BeTrue())
	})

	It("reports an unreachable backend as ErrBackendUnavailable", func() {
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		server.Close()

		client := anthropic.NewClient(anthropic.Config{BaseURL: server.URL})
		_, err := client.Generate(context.Background(), "hi", nil)
		Expect(errors.Is(err, llm.ErrBackendUnavailable)).To(BeTrue())
	})
})
