package util

import "testing"

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff", false},
		{"aa-bb-cc-dd-ee-ff", "aa:bb:cc:dd:ee:ff", false},
		{"aabb.ccdd.eeff", "aa:bb:cc:dd:ee:ff", false},
		{"aabbccddeeff", "aa:bb:cc:dd:ee:ff", false},
		{"0x11223344", "", true},
		{"aa:bb:cc:dd:ee", "", true},
		{"zz:bb:cc:dd:ee:ff", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeMAC(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeMAC(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeMAC(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMACFromBytes(t *testing.T) {
	got, err := MACFromBytes([]byte{0xaa, 0xbb, 0x0c, 0xdd, 0xee, 0x0f})
	if err != nil {
		t.Fatalf("MACFromBytes: %v", err)
	}
	if got != "aa:bb:0c:dd:ee:0f" {
		t.Errorf("MACFromBytes = %q", got)
	}
	if _, err := MACFromBytes([]byte{1, 2, 3}); err == nil {
		t.Error("MACFromBytes accepted short input")
	}
}

func TestNormalizePortName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ethernet1/1", "ethernet1/1"},
		{"Eth1/1", "ethernet1/1"},
		{"eth48", "ethernet48"},
		{"Gi0/1", "gigabitethernet0/1"},
		{"Te1/0/4", "tengigabitethernet1/0/4"},
		{"Po100", "portchannel100"},
		{"PortChannel100", "portchannel100"},
		{"mgmt0", "mgmt0"},
		{" Ethernet4 ", "ethernet4"},
	}
	for _, tt := range tests {
		if got := NormalizePortName(tt.in); got != tt.want {
			t.Errorf("NormalizePortName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
