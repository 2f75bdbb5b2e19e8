package inventory

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

const pageLimit = 200

// NetBoxProvider reads monitored interfaces and switches from the NetBox
// REST API. Read-only; alert-side writes live in pkg/alert.
type NetBoxProvider struct {
	baseURL  string
	token    string
	selector string
	client   *http.Client
}

// NewNetBoxProvider creates a provider for the given NetBox instance.
func NewNetBoxProvider(cfg *spec.InventorySpec, token string) *NetBoxProvider {
	transport := http.DefaultTransport
	if cfg.VerifyTLS != nil && !*cfg.VerifyTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &NetBoxProvider{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		token:    token,
		selector: cfg.SwitchSelector,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

type nbRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type nbIPRef struct {
	ID      int64  `json:"id"`
	Address string `json:"address"` // CIDR form, e.g. "10.1.2.3/24"
}

type nbSlug struct {
	Slug string `json:"slug"`
}

type nbDevice struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	OOBIP      *nbIPRef `json:"oob_ip"`
	PrimaryIP  *nbIPRef `json:"primary_ip"`
	PrimaryIP4 *nbIPRef `json:"primary_ip4"`
	Platform   *nbSlug  `json:"platform"`
}

type nbEndpoint struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Device *nbRef `json:"device"`
}

type nbInterface struct {
	ID                 int64        `json:"id"`
	Name               string       `json:"name"`
	MACAddress         string       `json:"mac_address"`
	ConnectedEndpoints []nbEndpoint `json:"connected_endpoints"`
}

type nbIPAddress struct {
	ID               int64  `json:"id"`
	Address          string `json:"address"`
	AssignedObjectID *int64 `json:"assigned_object_id"`
}

// FetchInterfaces returns every device with an OOB IP whose OOB interface
// has a MAC and a cable, as a ManagedInterface with its expected endpoint.
func (p *NetBoxProvider) FetchInterfaces(ctx context.Context) ([]model.ManagedInterface, error) {
	util.Infof("fetching devices with OOB IP from %s", p.baseURL)

	var devices []nbDevice
	if err := p.getAll(ctx, "/api/dcim/devices/", url.Values{"has_oob_ip": {"true"}}, &devices); err != nil {
		return nil, err
	}

	var out []model.ManagedInterface
	for _, dev := range devices {
		if dev.OOBIP == nil {
			continue
		}

		var ifaces []nbInterface
		if err := p.getAll(ctx, "/api/dcim/interfaces/", url.Values{"device_id": {fmt.Sprint(dev.ID)}}, &ifaces); err != nil {
			return nil, err
		}

		oob := p.findOOBInterface(ctx, &dev, ifaces)
		if oob == nil {
			util.Debugf("device %s: no OOB interface found", dev.Name)
			continue
		}
		mac, err := util.NormalizeMAC(oob.MACAddress)
		if err != nil {
			util.Debugf("device %s interface %s: %v", dev.Name, oob.Name, err)
			continue
		}

		expected := remoteEndpoint(oob)
		if expected.IsZero() {
			util.Debugf("device %s interface %s: no cable connection", dev.Name, oob.Name)
			continue
		}

		out = append(out, model.ManagedInterface{
			Device:    dev.Name,
			DeviceID:  dev.ID,
			Name:      oob.Name,
			MAC:       mac,
			OOBIP:     stripPrefixLen(dev.OOBIP.Address),
			DeviceURL: fmt.Sprintf("%s/dcim/devices/%d/", p.baseURL, dev.ID),
			Expected:  expected,
		})
	}

	util.Infof("found %d devices with connected OOB interfaces", len(out))
	return out, nil
}

// FetchSwitches returns switches matching the configured selector that
// have a primary IP.
func (p *NetBoxProvider) FetchSwitches(ctx context.Context) ([]model.Switch, error) {
	query := url.Values{}
	if p.selector != "" {
		key, val, ok := strings.Cut(p.selector, ":")
		if !ok {
			return nil, fmt.Errorf("invalid switch selector %q: %w", p.selector, util.ErrInvalidConfig)
		}
		query.Set(key, val)
	}
	util.Infof("fetching switches from %s (selector %q)", p.baseURL, p.selector)

	var devices []nbDevice
	if err := p.getAll(ctx, "/api/dcim/devices/", query, &devices); err != nil {
		return nil, err
	}

	var out []model.Switch
	for _, dev := range devices {
		ip := ""
		switch {
		case dev.PrimaryIP != nil:
			ip = stripPrefixLen(dev.PrimaryIP.Address)
		case dev.PrimaryIP4 != nil:
			ip = stripPrefixLen(dev.PrimaryIP4.Address)
		}
		if ip == "" {
			util.Warnf("switch %s has no primary IP, skipping", dev.Name)
			continue
		}
		sw := model.Switch{Name: dev.Name, MgmtIP: ip}
		if dev.Platform != nil {
			sw.Platform = dev.Platform.Slug
		}
		out = append(out, sw)
	}

	util.Infof("found %d switches with primary IP", len(out))
	return out, nil
}

// findOOBInterface locates the IPMI/iLO/iDRAC interface of a device:
// first the interface carrying the device's oob_ip, then a name match.
func (p *NetBoxProvider) findOOBInterface(ctx context.Context, dev *nbDevice, ifaces []nbInterface) *nbInterface {
	var ips []nbIPAddress
	err := p.getAll(ctx, "/api/ipam/ip-addresses/", url.Values{"device_id": {fmt.Sprint(dev.ID)}}, &ips)
	if err != nil {
		util.Warnf("device %s: listing IP addresses: %v", dev.Name, err)
	} else {
		for _, ip := range ips {
			if ip.ID != dev.OOBIP.ID || ip.AssignedObjectID == nil {
				continue
			}
			for i := range ifaces {
				if ifaces[i].ID == *ip.AssignedObjectID {
					return &ifaces[i]
				}
			}
		}
	}

	for i := range ifaces {
		name := strings.ToUpper(ifaces[i].Name)
		for _, pattern := range []string{"IPMI", "ILO", "IDRAC", "BMC", "OOB"} {
			if strings.Contains(name, pattern) && ifaces[i].MACAddress != "" {
				return &ifaces[i]
			}
		}
	}
	return nil
}

// remoteEndpoint extracts the cabled far end of an interface.
func remoteEndpoint(iface *nbInterface) model.Endpoint {
	for _, ep := range iface.ConnectedEndpoints {
		if ep.Device != nil && ep.Device.Name != "" {
			return model.Endpoint{Switch: ep.Device.Name, Port: ep.Name}
		}
	}
	return model.Endpoint{}
}

type nbList struct {
	Next    *string         `json:"next"`
	Results json.RawMessage `json:"results"`
}

// getAll walks a paginated list endpoint, appending every page's results
// into out (a pointer to a slice).
func (p *NetBoxProvider) getAll(ctx context.Context, path string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", fmt.Sprint(pageLimit))
	next := p.baseURL + path + "?" + query.Encode()

	var pages []json.RawMessage
	for next != "" {
		var page nbList
		if err := p.get(ctx, next, &page); err != nil {
			return err
		}
		pages = append(pages, page.Results)
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}

	// Merge page arrays into one, then decode into the typed slice.
	merged := make([]json.RawMessage, 0)
	for _, raw := range pages {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return util.NewProviderError("netbox", path, err)
		}
		merged = append(merged, items...)
	}
	buf, err := json.Marshal(merged)
	if err != nil {
		return util.NewProviderError("netbox", path, err)
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return util.NewProviderError("netbox", path, err)
	}
	return nil
}

func (p *NetBoxProvider) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return util.NewProviderError("netbox", rawURL, err)
	}
	req.Header.Set("Authorization", "Token "+p.token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return util.NewProviderError("netbox", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return util.NewProviderError("netbox", rawURL,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return util.NewProviderError("netbox", rawURL, err)
	}
	return nil
}

func stripPrefixLen(addr string) string {
	host, _, found := strings.Cut(addr, "/")
	if found {
		return host
	}
	return addr
}
