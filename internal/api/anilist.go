package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/alvarorichard/anistream/internal/util"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const AniListEndpoint = "https://graphql.anilist.co"

const mediaTitleQuery = `query ($id: Int) {
	Media(id: $id, type: ANIME) {
		id
		title { romaji english }
	}
}`

// AniListClient looks titles up on the AniList GraphQL API.
type AniListClient struct {
	client   *http.Client
	endpoint string
	limiter  *rate.Limiter
	retry    util.RetryPolicy
}

func NewAniListClient(opts Options) *AniListClient {
	return &AniListClient{
		client:   opts.Client,
		endpoint: util.FirstNonEmpty(opts.Endpoint, AniListEndpoint),
		limiter:  opts.limiter(),
		retry:    opts.retry(),
	}
}

func (c *AniListClient) Name() string { return "anilist" }

// Title returns the English title of an AniList id, or the romaji one when
// no English title exists.
func (c *AniListClient) Title(ctx context.Context, id int) (string, error) {
	body, err := json.Marshal(map[string]any{
		"query":     mediaTitleQuery,
		"variables": map[string]any{"id": id},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode AniList query")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "AniList rate limiter")
	}

	resp, err := util.DoWithRetry(ctx, c.client, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, c.retry)
	if err != nil {
		return "", errors.Wrap(err, "AniList request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", errors.Wrapf(ErrTitleNotFound, "anilist id %d", id)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("AniList returned: %s", resp.Status)
	}

	var result struct {
		Data struct {
			Media *struct {
				ID    int `json:"id"`
				Title struct {
					Romaji  string `json:"romaji"`
					English string `json:"english"`
				} `json:"title"`
			} `json:"Media"`
		} `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return "", errors.Wrap(err, "failed to decode AniList response")
	}

	media := result.Data.Media
	if media == nil {
		return "", errors.Wrapf(ErrTitleNotFound, "anilist id %d", id)
	}
	title := util.FirstNonEmpty(media.Title.English, media.Title.Romaji)
	if title == "" {
		return "", errors.Wrapf(ErrTitleNotFound, "anilist id %d has no title", id)
	}
	return title, nil
}
