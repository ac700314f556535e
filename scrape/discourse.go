package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"golang.org/x/time/rate"
)

const (
	// PostSeparator joins the posts of a topic into one document.
	PostSeparator = "\n\n---\n\n"

	defaultTimeout  = 30 * time.Second
	defaultMaxPages = 100
	postsPerRequest = 20
	userAgent       = "answerit-scraper/1.0"
)

type topicListResponse struct {
	TopicList struct {
		Topics        []topicSummary `json:"topics"`
		MoreTopicsURL string         `json:"more_topics_url"`
	} `json:"topic_list"`
}

type topicSummary struct {
	ID    int    `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type post struct {
	ID     int    `json:"id"`
	Cooked string `json:"cooked"`
}

type topicResponse struct {
	Title      string `json:"title"`
	PostStream struct {
		Posts  []post `json:"posts"`
		Stream []int  `json:"stream"`
	} `json:"post_stream"`
}

// DiscourseClient reads topics from a Discourse forum.
type DiscourseClient struct {
	baseURL    string
	httpClient *http.Client
	cookie     string
	limiter    *rate.Limiter
	maxPages   int
	converter  *md.Converter
	logger     *slog.Logger
}

// ClientOption configures a DiscourseClient.
type ClientOption func(*DiscourseClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *DiscourseClient) {
		c.httpClient = httpClient
	}
}

// WithCookie sends cookie with every request, for forums that require a
// logged-in session (for example "_t=...").
func WithCookie(cookie string) ClientOption {
	return func(c *DiscourseClient) {
		c.cookie = cookie
	}
}

// WithDelay spaces requests at least d apart. Zero disables pacing.
func WithDelay(d time.Duration) ClientOption {
	return func(c *DiscourseClient) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMaxPages bounds how many topic list pages are read.
func WithMaxPages(n int) ClientOption {
	return func(c *DiscourseClient) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *DiscourseClient) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// NewDiscourseClient creates a client for the forum at baseURL.
func NewDiscourseClient(baseURL string, opts ...ClientOption) (*DiscourseClient, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := &DiscourseClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		maxPages:   defaultMaxPages,
		converter:  md.NewConverter(baseURL, true, nil),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "discourse")

	return c, nil
}

// ScrapeCategory returns one document per topic of the category at
// categoryPath (for example "c/courses/tds-kb/34"). The posts of a topic are
// converted to markdown and joined with PostSeparator; empty posts are
// dropped. A topic that cannot be fetched is logged and skipped.
func (c *DiscourseClient) ScrapeCategory(ctx context.Context, categoryPath string) ([]Document, error) {
	categoryPath = strings.Trim(categoryPath, "/")
	if categoryPath == "" {
		return nil, ErrCategoryRequired
	}

	topics, err := c.listTopics(ctx, categoryPath)
	if err != nil {
		return nil, err
	}
	c.logger.Info("found topics", "category", categoryPath, "topics", len(topics))

	docs := make([]Document, 0, len(topics))
	for _, topic := range topics {
		doc, err := c.fetchTopic(ctx, topic)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("skipping topic", "url", c.topicURL(topic), "err", err)
			continue
		}
		c.logger.Debug("scraped topic", "title", doc.Title)
		docs = append(docs, doc)
	}

	return docs, nil
}

// listTopics pages through the category listing. Pinned topics repeat on
// every page and are kept once.
func (c *DiscourseClient) listTopics(ctx context.Context, categoryPath string) ([]topicSummary, error) {
	var topics []topicSummary
	seen := make(map[int]bool)

	for page := 0; page < c.maxPages; page++ {
		var resp topicListResponse
		endpoint := fmt.Sprintf("%s/%s.json?page=%d", c.baseURL, categoryPath, page)
		if err := c.get(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("failed to list topics: %w", err)
		}

		added := 0
		for _, t := range resp.TopicList.Topics {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			topics = append(topics, t)
			added++
		}

		if added == 0 || resp.TopicList.MoreTopicsURL == "" {
			break
		}
	}
	return topics, nil
}

func (c *DiscourseClient) topicURL(t topicSummary) string {
	return fmt.Sprintf("%s/t/%s/%d", c.baseURL, t.Slug, t.ID)
}

// fetchTopic reads every post of a topic. The first request returns only the
// first posts; the rest are requested by ID in stream order.
func (c *DiscourseClient) fetchTopic(ctx context.Context, t topicSummary) (Document, error) {
	var resp topicResponse
	if err := c.get(ctx, c.topicURL(t)+".json", &resp); err != nil {
		return Document{}, err
	}

	byID := make(map[int]post, len(resp.PostStream.Stream))
	for _, p := range resp.PostStream.Posts {
		byID[p.ID] = p
	}

	var missing []int
	for _, id := range resp.PostStream.Stream {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	for len(missing) > 0 {
		n := min(postsPerRequest, len(missing))
		posts, err := c.fetchPosts(ctx, t.ID, missing[:n])
		if err != nil {
			return Document{}, err
		}
		for _, p := range posts {
			byID[p.ID] = p
		}
		missing = missing[n:]
	}

	order := resp.PostStream.Stream
	if len(order) == 0 {
		for _, p := range resp.PostStream.Posts {
			order = append(order, p.ID)
		}
	}

	var texts []string
	for _, id := range order {
		p, ok := byID[id]
		if !ok {
			continue
		}
		text, err := cookedToMarkdown(c.converter, p.Cooked)
		if err != nil {
			return Document{}, fmt.Errorf("post %d: %w", id, err)
		}
		if text != "" {
			texts = append(texts, text)
		}
	}

	title := resp.Title
	if title == "" {
		title = t.Title
	}
	return Document{
		Title:   strings.TrimSpace(title),
		URL:     c.topicURL(t),
		Content: strings.Join(texts, PostSeparator),
	}, nil
}

func (c *DiscourseClient) fetchPosts(ctx context.Context, topicID int, ids []int) ([]post, error) {
	params := url.Values{}
	for _, id := range ids {
		params.Add("post_ids[]", strconv.Itoa(id))
	}

	var resp topicResponse
	endpoint := fmt.Sprintf("%s/t/%d/posts.json?%s", c.baseURL, topicID, params.Encode())
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	return resp.PostStream.Posts, nil
}

// get performs a paced GET request and decodes the JSON response.
func (c *DiscourseClient) get(ctx context.Context, endpoint string, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	c.logger.Debug("discourse request", "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &APIError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
