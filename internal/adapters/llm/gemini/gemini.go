package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/adabguard/adabguard/internal/adapters"
	"github.com/adabguard/adabguard/internal/adapters/llm"
)

type API struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *log.Entry
}

const (
	DefaultModel = "gemini-1.5-flash"

	maxSendRetries   = 3
	retryBaseBackoff = 500 * time.Millisecond
)

func NewGemini(apiKey, model string, logger *log.Entry) adapters.LLM {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		logger.Fatalf("Error creating client: %v", err)
	}
	api := &API{
		client: client,
		logger: logger,
		model:  client.GenerativeModel(model),
	}
	api.WithSafetySettings(nil)
	api.WithParameters(nil)
	return api
}

func (g *API) WithModel(modelName string) adapters.LLM {
	if modelName == "" {
		modelName = DefaultModel
	}
	g.model = g.client.GenerativeModel(modelName)
	return g
}

func (g *API) WithParameters(parameters *llm.GenerationParameters) adapters.LLM {
	if parameters == nil {
		parameters = &llm.GenerationParameters{
			Temperature:      0.1,
			TopK:             40,
			TopP:             0.95,
			MaxOutputTokens:  64,
			ResponseMIMEType: "text/plain",
		}
	}

	g.model.SetTemperature(parameters.Temperature)
	g.model.SetTopK(parameters.TopK)
	g.model.SetTopP(parameters.TopP)
	g.model.SetMaxOutputTokens(int32(parameters.MaxOutputTokens))
	g.model.ResponseMIMEType = parameters.ResponseMIMEType

	return g
}

func (g *API) WithSafetySettings(safetySettings []*genai.SafetySetting) *API {
	if len(safetySettings) == 0 {
		// The model has to look at profanity to judge it, so the built-in
		// filters must not block the request before it answers.
		safetySettings = []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryToxicity, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryDerogatory, Threshold: genai.HarmBlockNone},
		}
	}
	g.model.SafetySettings = safetySettings
	return g
}

func (g *API) WithSystemPrompt(prompt string) adapters.LLM {
	g.model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt)},
	}
	return g
}

func (g *API) ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error) {
	if len(messages) == 0 {
		return llm.ChatCompletionResponse{}, fmt.Errorf("no messages to send")
	}

	lastMessage, messages := messages[len(messages)-1], messages[:len(messages)-1]

	// Concurrent calls share g.model, so per-call instruction state goes on a
	// copy and the shared model is never written after construction.
	model := *g.model
	history := []*genai.Content{}
	for _, message := range messages {
		if message.Role == llm.RoleSystem {
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(message.Content)},
			}
			continue
		}
		history = append(history, &genai.Content{
			Parts: []genai.Part{genai.Text(message.Content)},
		})
	}

	session := model.StartChat()
	session.History = history

	var resp *genai.GenerateContentResponse
	backoff := retry.WithMaxRetries(maxSendRetries, retry.NewFibonacci(retryBaseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var sendErr error
		resp, sendErr = session.SendMessage(ctx, genai.Text(lastMessage.Content))
		if sendErr != nil {
			g.logger.WithField("error", sendErr.Error()).Debug("gemini send failed, retrying")
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err != nil {
		return llm.ChatCompletionResponse{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return llm.ChatCompletionResponse{}, fmt.Errorf("empty gemini response")
	}

	response := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		response += fmt.Sprintf("%v", part)
	}

	return llm.ChatCompletionResponse{
		Choices: []llm.ChatCompletionChoice{{Message: llm.ChatCompletionMessage{
			Role:    llm.RoleAssistant,
			Content: response,
		}}},
	}, nil
}
