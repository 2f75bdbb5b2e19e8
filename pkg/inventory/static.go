package inventory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// StaticProvider reads the topology from a YAML file. Meant for lab
// setups and tests where no NetBox instance is available. The file is
// re-read on every fetch so edits take effect on the next cycle.
type StaticProvider struct {
	path string
}

// NewStaticProvider creates a provider backed by the given YAML file.
func NewStaticProvider(path string) *StaticProvider {
	return &StaticProvider{path: path}
}

type staticTopology struct {
	Interfaces []staticInterface `yaml:"interfaces"`
	Switches   []staticSwitch    `yaml:"switches"`
}

type staticInterface struct {
	Device   string `yaml:"device"`
	Name     string `yaml:"name"`
	MAC      string `yaml:"mac"`
	OOBIP    string `yaml:"oob_ip"`
	MLAGPeer string `yaml:"mlag_peer"`
	Expected struct {
		Switch string `yaml:"switch"`
		Port   string `yaml:"port"`
	} `yaml:"expected"`
}

type staticSwitch struct {
	Name     string `yaml:"name"`
	MgmtIP   string `yaml:"mgmt_ip"`
	Platform string `yaml:"platform"`
}

func (p *StaticProvider) load() (*staticTopology, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, util.NewProviderError("static", p.path, err)
	}
	var topo staticTopology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, util.NewProviderError("static", p.path, err)
	}
	return &topo, nil
}

// FetchInterfaces returns the monitored interfaces declared in the file.
func (p *StaticProvider) FetchInterfaces(ctx context.Context) ([]model.ManagedInterface, error) {
	topo, err := p.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.ManagedInterface, 0, len(topo.Interfaces))
	for _, si := range topo.Interfaces {
		mac, err := util.NormalizeMAC(si.MAC)
		if err != nil {
			return nil, fmt.Errorf("interface %s/%s: %w", si.Device, si.Name, err)
		}
		iface := model.ManagedInterface{
			Device:   si.Device,
			Name:     si.Name,
			MAC:      mac,
			OOBIP:    si.OOBIP,
			MLAGPeer: si.MLAGPeer,
			Expected: model.Endpoint{Switch: si.Expected.Switch, Port: si.Expected.Port},
		}
		if err := iface.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", p.path, err)
		}
		out = append(out, iface)
	}
	return out, nil
}

// FetchSwitches returns the switches declared in the file.
func (p *StaticProvider) FetchSwitches(ctx context.Context) ([]model.Switch, error) {
	topo, err := p.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.Switch, 0, len(topo.Switches))
	for _, ss := range topo.Switches {
		if ss.Name == "" || ss.MgmtIP == "" {
			return nil, fmt.Errorf("%s: switch entry needs name and mgmt_ip", p.path)
		}
		out = append(out, model.Switch{Name: ss.Name, MgmtIP: ss.MgmtIP, Platform: ss.Platform})
	}
	return out, nil
}
