// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package answerit answers questions about a course from two corpora: the
// course material and the course's Discourse forum.
//
// An Engine embeds each question once, finds the nearest passages in both
// corpora and composes a numbered answer with source links. Questions may
// carry an image; when a text reader is configured the text in the image is
// appended to the question before retrieval.
//
//	cfg, err := config.Load("answerit.toml")
//	engine, err := answerit.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err) // *core.ConfigurationError
//	}
//	defer engine.Close()
//
//	ans, err := engine.Ask(ctx, answerit.Question{Text: "When is the ROE exam?"})
package answerit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/answer"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/retrieval"
)

// Question is a user question with an optional image attachment.
type Question struct {
	Text  string
	Image []byte
}

// Stats describes a loaded engine.
type Stats struct {
	CourseChunks    int  `json:"course_chunks"`
	DiscourseChunks int  `json:"discourse_chunks"`
	TopK            int  `json:"top_k"`
	OCR             bool `json:"ocr"`
}

// Engine answers questions. It is immutable after construction and safe
// for concurrent use.
type Engine struct {
	retriever *retrieval.Retriever
	reader    ai.TextReader
	closers   []func() error
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions) error

type engineOptions struct {
	logger *slog.Logger
	reader ai.TextReader
	topK   int
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithTextReader enables OCR of question images.
func WithTextReader(reader ai.TextReader) Option {
	return func(o *engineOptions) error {
		o.reader = reader
		return nil
	}
}

// WithTopK sets how many chunks are taken from each corpus.
func WithTopK(k int) Option {
	return func(o *engineOptions) error {
		o.topK = k
		return nil
	}
}

// New builds an engine from in-memory parts.
func New(embedder ai.Embedder, course, discourse *retrieval.Corpus, opts ...Option) (*Engine, error) {
	options := &engineOptions{
		logger: slog.Default(),
		topK:   retrieval.DefaultTopK,
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	retriever, err := retrieval.NewRetriever(embedder, course, discourse,
		retrieval.WithTopK(options.topK),
		retrieval.WithLogger(options.logger),
	)
	if err != nil {
		return nil, err
	}

	return &Engine{
		retriever: retriever,
		reader:    options.reader,
		logger:    options.logger.With("component", "engine"),
	}, nil
}

// Retriever returns the engine's retriever.
func (e *Engine) Retriever() *retrieval.Retriever {
	return e.retriever
}

// Stats reports corpus sizes and settings.
func (e *Engine) Stats() Stats {
	return Stats{
		CourseChunks:    e.retriever.Course().Len(),
		DiscourseChunks: e.retriever.Discourse().Len(),
		TopK:            e.retriever.TopK(),
		OCR:             e.reader != nil,
	}
}

// Query returns the retrieval query for q: the question text followed by
// any text read from its image. OCR failures are logged and ignored.
func (e *Engine) Query(ctx context.Context, q Question) string {
	ocrText, hasOCR := e.readImage(ctx, q.Image)
	return core.MergeQuery(q.Text, ocrText, hasOCR)
}

func (e *Engine) readImage(ctx context.Context, image []byte) (string, bool) {
	if len(image) == 0 || e.reader == nil {
		return "", false
	}
	text, err := e.reader.ReadText(ctx, image)
	if err != nil {
		e.logger.Warn("image text recognition failed, continuing without it", "err", err)
		return "", false
	}
	return text, true
}

// Ask answers q. An empty question (after OCR text is added) fails with
// core.ErrEmptyQuery.
func (e *Engine) Ask(ctx context.Context, q Question) (*core.Answer, error) {
	return e.AskWithMonitor(ctx, q, nil)
}

// AskWithMonitor is Ask with retrieval monitoring.
func (e *Engine) AskWithMonitor(ctx context.Context, q Question, monitor retrieval.Monitor) (*core.Answer, error) {
	query := e.Query(ctx, q)
	if query == "" {
		return nil, core.ErrEmptyQuery
	}

	result, err := e.retriever.RetrieveWithMonitor(ctx, query, monitor)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	e.logger.Debug("answering question",
		"query", query,
		"course", len(result.Course),
		"discourse", len(result.Discourse))

	return answer.Compose(result.CourseChunks(), result.DiscourseChunks()), nil
}

// Close releases resources acquired by Open.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Error("error releasing engine resource", "err", err)
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
