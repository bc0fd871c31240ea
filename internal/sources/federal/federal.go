// Package federal adapts the congressional bill API to the unified bill
// model. The provider speaks JSON with camelCase stage names and an api key
// header; this client translates pagination and filters to its parameters,
// validates the payload shape and tags every bill with federal provenance.
package federal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/sources"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.congress.gov/v3"

const (
	defaultTimeout = 10 * time.Second
	dateLayout     = "2006-01-02"
)

// Client calls the federal provider. One method invocation performs exactly
// one remote call.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a federal client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source identifies this adapter's upstream.
func (c *Client) Source() model.SourceID { return model.SourceFederal }

// Recent lists bills by most recent action.
func (c *Client) Recent(ctx context.Context, page sources.Page) ([]model.Bill, error) {
	return c.list(ctx, url.Values{}, page)
}

// ByTopic lists bills filed under a legislative subject.
func (c *Client) ByTopic(ctx context.Context, topic string, page sources.Page) ([]model.Bill, error) {
	params := url.Values{}
	params.Set("subject", topic)
	return c.list(ctx, params, page)
}

// ByStatus lists bills at a lifecycle stage. Unified stages that span
// several provider stages expand to a comma list.
func (c *Client) ByStatus(ctx context.Context, status model.Status, page sources.Page) ([]model.Bill, error) {
	params := url.Values{}
	params.Set("stage", stageParam(status))
	return c.list(ctx, params, page)
}

// BySponsor lists bills associated with the given members in role. The id
// set travels as one comma-joined parameter so the whole fetch stays a
// single quota-counted call.
func (c *Client) BySponsor(ctx context.Context, role sources.Role, sponsorIDs []string, page sources.Page) ([]model.Bill, error) {
	params := url.Values{}
	params.Set("sponsorIds", strings.Join(sponsorIDs, ","))
	params.Set("role", string(role))
	return c.list(ctx, params, page)
}

type wireSponsor struct {
	BioguideID string `json:"bioguideId"`
	FullName   string `json:"fullName"`
	Party      string `json:"party"`
	Chamber    string `json:"chamber"`
}

type wireBill struct {
	Number           string      `json:"number"`
	Congress         int         `json:"congress"`
	Title            string      `json:"title"`
	Summary          string      `json:"summary"`
	Stage            string      `json:"stage"`
	Subjects         []string    `json:"subjects"`
	IntroducedDate   string      `json:"introducedDate"`
	LatestActionDate string      `json:"latestActionDate"`
	Sponsor          wireSponsor `json:"sponsor"`
}

type wireList struct {
	Bills      []wireBill `json:"bills"`
	Pagination struct {
		Count int `json:"count"`
	} `json:"pagination"`
}

type wireError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// stageToStatus maps provider stage names onto unified lifecycle stages.
var stageToStatus = map[string]model.Status{
	"introduced":     model.StatusIntroduced,
	"referred":       model.StatusCommittee,
	"reported":       model.StatusCommittee,
	"passedHouse":    model.StatusPassedChamber,
	"passedSenate":   model.StatusPassedChamber,
	"passedCongress": model.StatusPassedBoth,
	"toPresident":    model.StatusPassedBoth,
	"becameLaw":      model.StatusEnacted,
	"vetoed":         model.StatusVetoed,
	"died":           model.StatusFailed,
}

func stageParam(status model.Status) string {
	switch status {
	case model.StatusIntroduced:
		return "introduced"
	case model.StatusCommittee:
		return "referred,reported"
	case model.StatusPassedChamber:
		return "passedHouse,passedSenate"
	case model.StatusPassedBoth:
		return "passedCongress,toPresident"
	case model.StatusEnacted:
		return "becameLaw"
	case model.StatusVetoed:
		return "vetoed"
	case model.StatusFailed:
		return "died"
	default:
		return ""
	}
}

func (c *Client) list(ctx context.Context, params url.Values, page sources.Page) ([]model.Bill, error) {
	page = page.Normalize()
	params.Set("limit", strconv.Itoa(page.Limit))
	params.Set("offset", strconv.Itoa(page.Offset))
	params.Set("format", "json")

	endpoint := c.baseURL + "/bill?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &sources.UpstreamError{Source: model.SourceFederal, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &sources.UpstreamError{Source: model.SourceFederal, Message: fmt.Sprintf("call upstream: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &sources.UpstreamError{Source: model.SourceFederal, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &sources.UpstreamError{Source: model.SourceFederal, Status: resp.StatusCode, Message: errorMessage(body)}
	}

	var payload wireList
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &sources.UpstreamError{Source: model.SourceFederal, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return normalize(payload.Bills)
}

// normalize validates the wire bills and converts them to the unified
// model. Any violation fails the whole response; a payload that cannot be
// trusted in part is not trusted at all.
func normalize(wire []wireBill) ([]model.Bill, error) {
	bills := make([]model.Bill, 0, len(wire))
	for i, w := range wire {
		native := model.NormalizeNativeID(w.Number)
		if native == "" {
			return nil, schemaErr(fmt.Sprintf("bill %d: missing number", i))
		}
		if strings.TrimSpace(w.Title) == "" {
			return nil, schemaErr(fmt.Sprintf("bill %s: missing title", native))
		}
		status, ok := stageToStatus[w.Stage]
		if !ok {
			return nil, schemaErr(fmt.Sprintf("bill %s: unrecognized stage %q", native, w.Stage))
		}
		introduced, err := parseDate(w.IntroducedDate)
		if err != nil {
			return nil, schemaErr(fmt.Sprintf("bill %s: bad introducedDate %q", native, w.IntroducedDate))
		}
		lastAction, err := parseDate(w.LatestActionDate)
		if err != nil {
			return nil, schemaErr(fmt.Sprintf("bill %s: bad latestActionDate %q", native, w.LatestActionDate))
		}
		if lastAction.IsZero() {
			lastAction = introduced
		}

		bills = append(bills, model.Bill{
			ID:       model.TagID(model.SourceFederal, native),
			NativeID: native,
			Source:   model.SourceFederal,
			Title:    strings.TrimSpace(w.Title),
			Summary:  strings.TrimSpace(w.Summary),
			Sponsor: model.Sponsor{
				ID:      w.Sponsor.BioguideID,
				Name:    w.Sponsor.FullName,
				Party:   w.Sponsor.Party,
				Chamber: w.Sponsor.Chamber,
			},
			Status:       status,
			Subjects:     w.Subjects,
			IntroducedAt: introduced,
			LastActionAt: lastAction,
		})
	}
	return bills, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func schemaErr(msg string) *sources.UpstreamError {
	return &sources.UpstreamError{Source: model.SourceFederal, Status: http.StatusOK, Message: msg}
}

// errorMessage pulls the provider's error message out of a failure body,
// falling back to a trimmed raw excerpt.
func errorMessage(body []byte) string {
	var we wireError
	if err := json.Unmarshal(body, &we); err == nil && we.Error.Message != "" {
		return we.Error.Message
	}
	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}
	if excerpt == "" {
		excerpt = "no response body"
	}
	return excerpt
}
