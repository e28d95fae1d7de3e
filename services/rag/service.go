package rag

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"usadba/config"
	"usadba/models"
	"usadba/utils"
)

// factsPrompt instructs the generator to answer strictly from the provided
// evidence.
const factsPrompt = "Ты — помощник загородного отеля «Усадьба 4 сезона». " +
	"Отвечай только на основе фактов из переданного контекста. " +
	"Если в контексте нет ответа, честно скажи, что данных нет, и не выдумывай. " +
	"Отвечай по-русски, дружелюбно и по делу."

const briefStyleHint = "Отвечай одним цельным текстом на 2–4 предложения. " +
	"Используй переданный контекст только для понимания ответа и не перечисляй файлы, блоки или пары вопрос-ответ. " +
	"В конце можешь добавить фразу «Если хотите — расскажу подробнее»."

// Completer generates an answer from a message transcript.
type Completer interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// Service coordinates retrieval, the evidence guard, the answer cache, and
// generation.
type Service struct {
	retriever *Retriever
	llm       Completer
	cache     AnswerCache
	cfg       config.Config
	logger    *zap.Logger
}

// NewService wires the answering pipeline together.
func NewService(retriever *Retriever, llm Completer, cache AnswerCache, cfg config.Config) *Service {
	return &Service{
		retriever: retriever,
		llm:       llm,
		cache:     cache,
		cfg:       cfg,
		logger:    utils.GetLogger(),
	}
}

// Cache exposes the answer cache for admin endpoints.
func (s *Service) Cache() AnswerCache { return s.cache }

// Answer runs the full pipeline for a general question: retrieval, the FAQ
// shortcut, the minimum-evidence guard, cache lookup, generation, and the
// evidence-only fallback when generation fails.
func (s *Service) Answer(ctx context.Context, text, intent string) (string, map[string]any) {
	detailMode := DetectDetailMode(text)

	aggregated := s.retriever.Gather(ctx, text)
	debug := s.buildDebug(aggregated, intent)

	// Confident FAQ match answers directly, bypassing generation and cache.
	if faqAnswer := s.extractFAQAnswer(aggregated.FAQHits); faqAnswer != "" {
		debug["faq_direct"] = true
		debug["llm_called"] = false
		return PostprocessAnswer(faqAnswer, false), debug
	}

	maxSnippets := s.cfg.RagMaxSnippets
	if maxSnippets <= 0 {
		maxSnippets = 8
	}
	facts := aggregated.FactsHits
	if len(facts) > maxSnippets {
		facts = facts[:maxSnippets]
	}
	contextText := BuildContext(facts, nil, aggregated.FAQHits, s.cfg.RagContextChars)
	debug["context_length"] = len(contextText)

	// Not enough corroborated evidence: refuse instead of guessing.
	if aggregated.HitsTotal < s.cfg.RagMinFacts {
		debug["guard_triggered"] = true
		debug["llm_called"] = false
		return PostprocessAnswer(s.guardAnswer(intent), detailMode), debug
	}

	if answer, cachedDebug, ok := s.cache.Get(ctx, text, intent, contextText); ok {
		debug["cache_hit"] = true
		debug["llm_called"] = false
		if cachedDebug != nil {
			debug["cached_debug"] = cachedDebug
		}
		return answer, debug
	}
	debug["cache_hit"] = false

	systemPrompt := factsPrompt + "\n\n" + briefStyleHint
	if contextText != "" {
		systemPrompt += "\n\n" + contextText
	}
	messages := []models.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: text},
	}

	debug["llm_called"] = true
	llmStarted := time.Now()
	answer, err := s.llm.Complete(ctx, messages)
	debug["llm_latency_ms"] = int(time.Since(llmStarted).Milliseconds())
	if err != nil {
		debug["llm_error"] = err.Error()
		s.logger.Error("generation failed, falling back to evidence bullets", zap.Error(err))
		if fallback := s.buildEvidenceAnswer(aggregated); fallback != "" {
			return PostprocessAnswer(fallback, detailMode), debug
		}
		return "Сейчас не удалось получить ответ из LLM. Попробуйте уточнить запрос чуть позже.", debug
	}

	if answer == "" {
		answer = "Нет данных в базе знаний."
	}
	final := PostprocessAnswer(answer, detailMode)
	s.cache.Set(ctx, text, intent, contextText, final, map[string]any{
		"intent":     intent,
		"hits_total": aggregated.HitsTotal,
	})
	return final, debug
}

// KnowledgeAnswer serves explicit knowledge-base lookups; same pipeline but a
// short, always-finalized answer shape.
func (s *Service) KnowledgeAnswer(ctx context.Context, text string) (string, map[string]any) {
	intent := "knowledge_lookup"
	aggregated := s.retriever.Gather(ctx, text)
	debug := s.buildDebug(aggregated, intent)

	if faqAnswer := s.extractFAQAnswer(aggregated.FAQHits); faqAnswer != "" {
		debug["faq_direct"] = true
		debug["llm_called"] = false
		return FinalizeShortAnswer(faqAnswer), debug
	}

	// Explicit lookups dig deeper than the general pass: raw file chunks
	// backfill the evidence when curated facts run thin.
	if _, fileChunks := s.retriever.RetrieveSplit(ctx, text); len(fileChunks) > 0 {
		aggregated.FilesHits = fileChunks
		aggregated.HitsTotal += len(fileChunks)
		debug["files_hits"] = len(fileChunks)
		debug["hits_total"] = aggregated.HitsTotal
	}

	minFacts := s.cfg.RagMinFacts
	if minFacts < 1 {
		minFacts = 1
	}
	if aggregated.HitsTotal < minFacts {
		debug["guard_triggered"] = true
		debug["llm_called"] = false
		return FinalizeShortAnswer(
			"Я не нашёл подтверждённых сведений в базе знаний по этому вопросу. " +
				"Попробуйте уточнить запрос или загрузить описание с нужной информацией."), debug
	}

	maxSnippets := s.cfg.RagMaxSnippets
	if maxSnippets <= 0 {
		maxSnippets = 8
	}
	facts := aggregated.FactsHits
	if len(facts) > maxSnippets {
		facts = facts[:maxSnippets]
	}
	files := aggregated.FilesHits
	if len(files) > maxSnippets {
		files = files[:maxSnippets]
	}
	contextText := BuildContext(facts, files, aggregated.FAQHits, s.cfg.RagContextChars)

	messages := []models.ChatMessage{
		{Role: "system", Content: factsPrompt + "\n\n" + briefStyleHint + "\n\n" + contextText},
		{Role: "user", Content: text},
	}

	debug["llm_called"] = true
	llmStarted := time.Now()
	answer, err := s.llm.Complete(ctx, messages)
	debug["llm_latency_ms"] = int(time.Since(llmStarted).Milliseconds())
	if err != nil {
		debug["llm_error"] = err.Error()
		return FinalizeShortAnswer(
			"Не получилось сформировать ответ, но я продолжу искать нужные данные. " +
				"Попробуйте чуть позже или уточните вопрос."), debug
	}
	if answer == "" {
		answer = "Информация из базы пока не найдена."
	}
	return FinalizeShortAnswer(answer), debug
}

func (s *Service) extractFAQAnswer(faqHits []models.FAQHit) string {
	if len(faqHits) == 0 {
		return ""
	}
	best := faqHits[0]
	answer := strings.TrimSpace(best.Answer)
	if answer == "" || best.Similarity < s.cfg.FAQMinSimilarity {
		return ""
	}
	return answer
}

func (s *Service) guardAnswer(intent string) string {
	if intent == "lodging" {
		return "Я не нашёл подтверждённой информации о домиках или номерах в базе знаний. " +
			"Если загрузите файл или страницу с типами размещения, ценами и вместимостью, я смогу отвечать точнее."
	}
	return "Я не нашёл подтверждённой информации в базе знаний, поэтому не буду выдумывать. " +
		"Уточните, пожалуйста: даты заезда и выезда, количество гостей, тип размещения или бюджет? " +
		"Если вам нужна баня/сауна или дополнительные услуги — тоже сообщите. " +
		"Если вы загрузили описание номеров/домиков в базу — скажите 'покажи варианты из базы'."
}

// buildEvidenceAnswer renders up to four evidence bullets, FAQ entries first,
// then curated documents, then raw vector hits, best score first within each
// group.
func (s *Service) buildEvidenceAnswer(aggregated models.Aggregated) string {
	if len(aggregated.FactsHits) == 0 && len(aggregated.FAQHits) == 0 {
		return ""
	}

	type candidate struct {
		priority int
		score    float64
		snippet  string
	}
	var candidates []candidate

	for _, faq := range aggregated.FAQHits {
		answer := strings.TrimSpace(faq.Answer)
		if answer == "" {
			continue
		}
		text := answer
		if question := strings.TrimSpace(faq.Question); question != "" {
			text = question + ": " + answer
		}
		candidates = append(candidates, candidate{priority: 0, score: faq.Similarity, snippet: text})
	}
	for _, hit := range aggregated.FactsHits {
		text := strings.TrimSpace(hit.Text)
		if text == "" {
			continue
		}
		priority := 2
		switch hit.Origin {
		case models.OriginFAQ:
			priority = 0
		case models.OriginCurated:
			priority = 1
		}
		snippet := text
		if title := strings.TrimSpace(hit.Title); title != "" {
			snippet = title + ": " + text
		}
		candidates = append(candidates, candidate{priority: priority, score: hit.Score, snippet: snippet})
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > 4 {
		candidates = candidates[:4]
	}

	lines := make([]string, 0, len(candidates))
	for _, c := range candidates {
		lines = append(lines, "• "+c.snippet)
	}
	return strings.Join(lines, "\n")
}

func (s *Service) buildDebug(aggregated models.Aggregated, intent string) map[string]any {
	debug := map[string]any{
		"intent":           intent,
		"hits_total":       aggregated.HitsTotal,
		"facts_hits":       len(aggregated.FactsHits),
		"files_hits":       len(aggregated.FilesHits),
		"faq_hits":         len(aggregated.FAQHits),
		"merged_count":     aggregated.MergedCount,
		"rag_latency_ms":   aggregated.RagLatencyMS,
		"embed_latency_ms": aggregated.EmbedLatencyMS,
		"score_threshold":  aggregated.ScoreThreshold,
		"filtered_out":     aggregated.FilteredOutCount,
		"rag_min_facts":    s.cfg.RagMinFacts,
		"guard_triggered":  false,
		"llm_called":       false,
	}
	if aggregated.MinScore != nil {
		debug["min_score"] = *aggregated.MinScore
	}
	if aggregated.MaxScore != nil {
		debug["max_score"] = *aggregated.MaxScore
	}
	if aggregated.EmbedError != "" {
		debug["embed_error"] = aggregated.EmbedError
	}
	if aggregated.VectorError != "" {
		debug["vector_error"] = aggregated.VectorError
	}
	if aggregated.FAQError != "" {
		debug["faq_error"] = aggregated.FAQError
	}
	return debug
}
