package alert

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// NetBoxDispatcher marks moved devices with a tag and optionally writes
// a journal entry. Raise adds the tag (idempotent: already-present is
// success), Clear removes it.
type NetBoxDispatcher struct {
	baseURL string
	token   string
	tagName string
	tagSlug string
	journal bool
	client  *http.Client

	mu    sync.Mutex
	tagID int64 // cached after the first ensure
}

// NewNetBoxDispatcher creates a dispatcher against the same NetBox
// instance the inventory reads from.
func NewNetBoxDispatcher(inv *spec.InventorySpec, cfg *spec.AlertSpec, token string) *NetBoxDispatcher {
	transport := http.DefaultTransport
	if inv.VerifyTLS != nil && !*inv.VerifyTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &NetBoxDispatcher{
		baseURL: strings.TrimRight(inv.URL, "/"),
		token:   token,
		tagName: cfg.MoveTag,
		tagSlug: slugify(cfg.MoveTag),
		journal: cfg.Journal,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

// Raise tags the device and, when enabled, writes a journal entry
// describing the observed location.
func (d *NetBoxDispatcher) Raise(ctx context.Context, r Raise) error {
	if r.Interface.DeviceID == 0 {
		return util.NewDispatchError("raise", r.Interface.ID(),
			fmt.Errorf("no inventory device ID"))
	}

	if err := d.addTag(ctx, r.Interface.DeviceID); err != nil {
		return util.NewDispatchError("raise", r.Interface.ID(), err)
	}

	if d.journal {
		kind := "warning"
		if r.Reminder {
			kind = "info"
		}
		if err := d.createJournalEntry(ctx, r.Interface.DeviceID, kind, formatJournalBody(r)); err != nil {
			return util.NewDispatchError("raise", r.Interface.ID(), err)
		}
	}

	util.WithInterface(r.Interface.ID()).
		Infof("alert raised: observed at %s (reminder=%v)", r.Observed, r.Reminder)
	return nil
}

// Clear removes the move tag from the device. A device that no longer
// carries the tag is success.
func (d *NetBoxDispatcher) Clear(ctx context.Context, iface model.ManagedInterface) error {
	if iface.DeviceID == 0 {
		return util.NewDispatchError("clear", iface.ID(),
			fmt.Errorf("no inventory device ID"))
	}
	if err := d.removeTag(ctx, iface.DeviceID); err != nil {
		return util.NewDispatchError("clear", iface.ID(), err)
	}
	util.WithInterface(iface.ID()).Infof("alert cleared")
	return nil
}

// formatJournalBody renders the markdown table the journal entry carries.
func formatJournalBody(r Raise) string {
	prefix := ""
	if r.Reminder {
		prefix = "REMINDER: "
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%sOOB Interface Move Detected**\n\n", prefix)
	b.WriteString("| Field | Value |\n|:------|:------|\n")
	fmt.Fprintf(&b, "| Interface | %s |\n", r.Interface.Name)
	fmt.Fprintf(&b, "| MAC | `%s` |\n", r.Interface.MAC)
	if r.Interface.OOBIP != "" {
		fmt.Fprintf(&b, "| OOB IP | %s |\n", r.Interface.OOBIP)
	}
	fmt.Fprintf(&b, "| Expected | %s |\n", r.Interface.Expected)
	fmt.Fprintf(&b, "| Observed (FDB) | %s |\n", r.Observed)
	if r.VLAN != 0 {
		fmt.Fprintf(&b, "| Observed VLAN | %d |\n", r.VLAN)
	}
	fmt.Fprintf(&b, "| Consecutive Observations | %d |\n", r.Counter)
	if r.Interface.DeviceURL != "" {
		fmt.Fprintf(&b, "| Device | [%s](%s) |\n", r.Interface.Device, r.Interface.DeviceURL)
	}
	b.WriteString("\n---\n_Detected by oobwatch_")
	return b.String()
}

type nbTag struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

type nbDeviceTags struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Tags []nbTag `json:"tags"`
}

// ensureTag returns the tag's ID, creating the tag on first use.
func (d *NetBoxDispatcher) ensureTag(ctx context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tagID != 0 {
		return d.tagID, nil
	}

	var existing struct {
		Results []nbTag `json:"results"`
	}
	if err := d.do(ctx, http.MethodGet, "/api/extras/tags/?slug="+d.tagSlug, nil, &existing); err != nil {
		return 0, err
	}
	if len(existing.Results) > 0 {
		d.tagID = existing.Results[0].ID
		return d.tagID, nil
	}

	util.Infof("creating tag %q in inventory", d.tagName)
	var created nbTag
	err := d.do(ctx, http.MethodPost, "/api/extras/tags/", map[string]interface{}{
		"name":        d.tagName,
		"slug":        d.tagSlug,
		"color":       "f44336",
		"description": "Auto-created by oobwatch: OOB interface observed away from its cabled port",
	}, &created)
	if err != nil {
		return 0, err
	}
	d.tagID = created.ID
	return d.tagID, nil
}

func (d *NetBoxDispatcher) addTag(ctx context.Context, deviceID int64) error {
	tagID, err := d.ensureTag(ctx)
	if err != nil {
		return err
	}

	dev, err := d.getDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(dev.Tags)+1)
	for _, t := range dev.Tags {
		if t.ID == tagID {
			return nil // already tagged
		}
		ids = append(ids, t.ID)
	}
	ids = append(ids, tagID)
	return d.patchDeviceTags(ctx, deviceID, ids)
}

func (d *NetBoxDispatcher) removeTag(ctx context.Context, deviceID int64) error {
	dev, err := d.getDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(dev.Tags))
	present := false
	for _, t := range dev.Tags {
		if t.Slug == d.tagSlug {
			present = true
			continue
		}
		ids = append(ids, t.ID)
	}
	if !present {
		return nil // already untagged
	}
	return d.patchDeviceTags(ctx, deviceID, ids)
}

func (d *NetBoxDispatcher) getDevice(ctx context.Context, deviceID int64) (*nbDeviceTags, error) {
	var dev nbDeviceTags
	if err := d.do(ctx, http.MethodGet, fmt.Sprintf("/api/dcim/devices/%d/", deviceID), nil, &dev); err != nil {
		return nil, err
	}
	return &dev, nil
}

func (d *NetBoxDispatcher) patchDeviceTags(ctx context.Context, deviceID int64, tagIDs []int64) error {
	return d.do(ctx, http.MethodPatch, fmt.Sprintf("/api/dcim/devices/%d/", deviceID),
		map[string]interface{}{"tags": tagIDs}, nil)
}

func (d *NetBoxDispatcher) createJournalEntry(ctx context.Context, deviceID int64, kind, comments string) error {
	return d.do(ctx, http.MethodPost, "/api/extras/journal-entries/", map[string]interface{}{
		"assigned_object_type": "dcim.device",
		"assigned_object_id":   deviceID,
		"kind":                 kind,
		"comments":             comments,
	}, nil)
}

func (d *NetBoxDispatcher) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+d.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
