package handlers

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/adabguard/adabguard/internal/adapters"
	"github.com/adabguard/adabguard/internal/adapters/llm"
	"github.com/adabguard/adabguard/internal/observability"
)

// The filter is deliberately narrow: only unambiguous, severe profanity may
// be flagged, and the model must answer with a single word.
const strictFilterPrompt = `أنت نظام فلترة محتوى صارم جداً ومهمتك تحليل النص التالي بدقة لتحديد ما إذا كان يحتوي على شتائم قوية جداً تستدعي الحذف الفوري.
استخدم حكمك لتحديد أي شتائم قوية جداً وغير مقبولة إطلاقاً في بيئة محترمة، حتى لو كانت مموهة بإزالة حرف أو إضافة رموز أو نقاط.
كن صارماً للغاية: لا تحذف إلا الشتائم الواضحة والقوية جداً. تجاهل الكلمات العامية العادية، النقد، أو الألفاظ التي قد تكون غير لائقة ولكنها ليست شتائم قوية.
هل يجب حذف هذا النص بسبب احتوائه على شتائم قوية جداً؟ أجب بـ "نعم" أو "لا" فقط.`

const referenceListHeader = "قائمة مرجعية بالشتائم المعروفة:"

const maxReferenceWords = 200

type profanityDetector struct {
	llm       adapters.LLM
	reference []string
	timeout   time.Duration
	logger    *log.Entry
}

func NewProfanityDetector(llmAPI adapters.LLM, reference []string, timeout time.Duration, logger *log.Entry) adapters.Classifier {
	if len(reference) > maxReferenceWords {
		reference = reference[:maxReferenceWords]
	}
	return &profanityDetector{
		llm:       llmAPI,
		reference: reference,
		timeout:   timeout,
		logger:    logger,
	}
}

func (d *profanityDetector) Classify(ctx context.Context, text string) (bool, error) {
	ctx, span := otel.Tracer("moderation").Start(ctx, "classify-message")
	defer span.End()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	done := observability.StartClassification()

	systemPrompt := strictFilterPrompt
	if len(d.reference) > 0 {
		systemPrompt += "\n" + referenceListHeader + "\n" + strings.Join(d.reference, "، ")
	}

	resp, err := d.llm.ChatCompletion(ctx, []llm.ChatCompletionMessage{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: text},
	})
	if err != nil {
		done("error")
		return false, errors.WithMessage(err, "classification request failed")
	}
	if len(resp.Choices) == 0 {
		done("error")
		return false, errors.New("no response choices available")
	}
	done("completed")

	answer := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	verdict := strings.HasPrefix(answer, "نعم") || strings.HasPrefix(answer, "yes")
	d.logger.WithFields(log.Fields{
		"answer":  answer,
		"verdict": verdict,
	}).Debug("strict check response")
	return verdict, nil
}

// LoadReferenceWords reads the optional swear-word reference file, one word
// per line. A missing file is not an error, the classifier works without it.
func LoadReferenceWords(path string) []string {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.WithField("error", err.Error()).Warn("cant load swear words reference")
		return nil
	}
	seen := make(map[string]struct{})
	words := make([]string, 0)
	for _, line := range strings.Split(string(raw), "\n") {
		word := strings.ToLower(strings.TrimSpace(line))
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	log.Infof("loaded %d reference words", len(words))
	return words
}
