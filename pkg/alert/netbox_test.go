package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
)

type fakeNetBox struct {
	mux        *http.ServeMux
	deviceTags []int64 // tag IDs on device 10
	tagCreated bool
	journals   []map[string]interface{}
	patches    [][]int64
}

func newFakeNetBox(t *testing.T, tagExists bool) (*fakeNetBox, *httptest.Server) {
	t.Helper()
	f := &fakeNetBox{mux: http.NewServeMux()}

	f.mux.HandleFunc("/api/extras/tags/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			f.tagCreated = true
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": 77, "slug": "oob-moved"}`)
			return
		}
		if tagExists || f.tagCreated {
			fmt.Fprint(w, `{"count": 1, "results": [{"id": 77, "slug": "oob-moved"}]}`)
			return
		}
		fmt.Fprint(w, `{"count": 0, "results": []}`)
	})
	f.mux.HandleFunc("/api/dcim/devices/10/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPatch {
			var body struct {
				Tags []int64 `json:"tags"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.deviceTags = body.Tags
			f.patches = append(f.patches, body.Tags)
			fmt.Fprint(w, `{}`)
			return
		}
		tags := make([]string, 0, len(f.deviceTags))
		for _, id := range f.deviceTags {
			slug := "other-tag"
			if id == 77 {
				slug = "oob-moved"
			}
			tags = append(tags, fmt.Sprintf(`{"id": %d, "slug": "%s"}`, id, slug))
		}
		fmt.Fprintf(w, `{"id": 10, "name": "server-07", "tags": [%s]}`, strings.Join(tags, ","))
	})
	f.mux.HandleFunc("/api/extras/journal-entries/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.journals = append(f.journals, body)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{}`)
	})

	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func testIface() model.ManagedInterface {
	return model.ManagedInterface{
		Device:    "server-07",
		DeviceID:  10,
		Name:      "iDRAC",
		MAC:       "aa:bb:cc:dd:ee:01",
		OOBIP:     "10.10.0.7",
		DeviceURL: "https://netbox.example.com/dcim/devices/10/",
		Expected:  model.Endpoint{Switch: "oob-sw-01", Port: "Ethernet12"},
	}
}

func newTestDispatcher(srv *httptest.Server, journal bool) *NetBoxDispatcher {
	return NewNetBoxDispatcher(
		&spec.InventorySpec{URL: srv.URL},
		&spec.AlertSpec{MoveTag: "oob-moved", Journal: journal},
		"secret",
	)
}

func TestRaiseAddsTagAndJournal(t *testing.T) {
	f, srv := newFakeNetBox(t, false)
	d := newTestDispatcher(srv, true)

	err := d.Raise(context.Background(), Raise{
		Interface: testIface(),
		Observed:  model.Endpoint{Switch: "oob-sw-02", Port: "Ethernet3"},
		VLAN:      100,
		Counter:   2,
	})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}

	if !f.tagCreated {
		t.Error("expected tag to be created")
	}
	if len(f.deviceTags) != 1 || f.deviceTags[0] != 77 {
		t.Errorf("expected device tagged with 77, got %v", f.deviceTags)
	}
	if len(f.journals) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(f.journals))
	}
	body := f.journals[0]["comments"].(string)
	if !strings.Contains(body, "oob-sw-02:Ethernet3") || !strings.Contains(body, "`aa:bb:cc:dd:ee:01`") {
		t.Errorf("journal body missing details:\n%s", body)
	}
	if strings.Contains(body, "REMINDER") {
		t.Error("initial raise must not be marked as reminder")
	}
	if !strings.Contains(body, "[server-07](https://netbox.example.com/dcim/devices/10/)") {
		t.Errorf("journal body missing device link:\n%s", body)
	}
	if f.journals[0]["kind"] != "warning" {
		t.Errorf("expected warning kind, got %v", f.journals[0]["kind"])
	}
}

func TestRaiseReminder(t *testing.T) {
	f, srv := newFakeNetBox(t, true)
	f.deviceTags = []int64{77} // already tagged from the first raise

	d := newTestDispatcher(srv, true)
	err := d.Raise(context.Background(), Raise{
		Interface: testIface(),
		Observed:  model.Endpoint{Switch: "oob-sw-02", Port: "Ethernet3"},
		Counter:   5,
		Reminder:  true,
	})
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}

	// Tag already present: no PATCH needed.
	if len(f.patches) != 0 {
		t.Errorf("expected no tag patch, got %v", f.patches)
	}
	if len(f.journals) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(f.journals))
	}
	if !strings.Contains(f.journals[0]["comments"].(string), "REMINDER") {
		t.Error("reminder journal entry missing REMINDER prefix")
	}
	if f.journals[0]["kind"] != "info" {
		t.Errorf("expected info kind for reminder, got %v", f.journals[0]["kind"])
	}
}

func TestRaiseKeepsForeignTags(t *testing.T) {
	f, srv := newFakeNetBox(t, true)
	f.deviceTags = []int64{5}

	d := newTestDispatcher(srv, false)
	if err := d.Raise(context.Background(), Raise{Interface: testIface()}); err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if len(f.deviceTags) != 2 {
		t.Errorf("expected both tags on device, got %v", f.deviceTags)
	}
}

func TestClearRemovesOnlyMoveTag(t *testing.T) {
	f, srv := newFakeNetBox(t, true)
	f.deviceTags = []int64{5, 77}

	d := newTestDispatcher(srv, false)
	if err := d.Clear(context.Background(), testIface()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(f.deviceTags) != 1 || f.deviceTags[0] != 5 {
		t.Errorf("expected only foreign tag left, got %v", f.deviceTags)
	}
}

func TestClearIdempotent(t *testing.T) {
	f, srv := newFakeNetBox(t, true)

	d := newTestDispatcher(srv, false)
	if err := d.Clear(context.Background(), testIface()); err != nil {
		t.Fatalf("Clear on untagged device: %v", err)
	}
	if len(f.patches) != 0 {
		t.Errorf("expected no patch for untagged device, got %v", f.patches)
	}
}

func TestDispatchWithoutDeviceID(t *testing.T) {
	_, srv := newFakeNetBox(t, true)
	d := newTestDispatcher(srv, false)

	iface := testIface()
	iface.DeviceID = 0
	if err := d.Raise(context.Background(), Raise{Interface: iface}); err == nil {
		t.Error("expected error for missing device ID")
	}
	if err := d.Clear(context.Background(), iface); err == nil {
		t.Error("expected error for missing device ID")
	}
}
