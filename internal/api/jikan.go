package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/alvarorichard/anistream/internal/util"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const JikanEndpoint = "https://api.jikan.moe/v4"

// JikanClient looks titles up on Jikan, the MyAnimeList REST mirror. Jikan
// allows roughly three requests per second.
type JikanClient struct {
	client   *http.Client
	endpoint string
	limiter  *rate.Limiter
	retry    util.RetryPolicy
}

func NewJikanClient(opts Options) *JikanClient {
	return &JikanClient{
		client:   opts.Client,
		endpoint: strings.TrimRight(util.FirstNonEmpty(opts.Endpoint, JikanEndpoint), "/"),
		limiter:  opts.limiter(),
		retry:    opts.retry(),
	}
}

func (c *JikanClient) Name() string { return "jikan" }

// Title returns the English title of a MyAnimeList id, else the default one.
func (c *JikanClient) Title(ctx context.Context, id int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "Jikan rate limiter")
	}

	u := c.endpoint + "/anime/" + strconv.Itoa(id)
	resp, err := util.DoWithRetry(ctx, c.client, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, c.retry)
	if err != nil {
		return "", errors.Wrap(err, "Jikan request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", errors.Wrapf(ErrTitleNotFound, "mal id %d", id)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("Jikan returned: %s", resp.Status)
	}

	var result struct {
		Data struct {
			Title        string `json:"title"`
			TitleEnglish string `json:"title_english"`
		} `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return "", errors.Wrap(err, "failed to decode Jikan response")
	}

	title := util.FirstNonEmpty(result.Data.TitleEnglish, result.Data.Title)
	if title == "" {
		return "", errors.Wrapf(ErrTitleNotFound, "mal id %d", id)
	}
	return title, nil
}
