package ethernet

import "testing"

func TestParseAddr(t *testing.T) {
	tests := []struct {
		in   string
		want [6]byte
		ok   bool
	}{
		{in: "00:cf:52:49:c3:01", want: [6]byte{0x00, 0xcf, 0x52, 0x49, 0xc3, 0x01}, ok: true},
		{in: "02-80-AD-20-31-B8", want: [6]byte{0x02, 0x80, 0xad, 0x20, 0x31, 0xb8}, ok: true},
		{in: "1:2:3:4:5:6", want: [6]byte{1, 2, 3, 4, 5, 6}, ok: true},
		{in: "00:cf:52:49:c3"},
		{in: "00:cf:52:49:c3:01:02"},
		{in: "00:cf:52:49:c3:"},
		{in: "00::52:49:c3:01"},
		{in: "000:cf:52:49:c3:01"},
		{in: "zz:cf:52:49:c3:01"},
		{in: ""},
	}
	for _, tc := range tests {
		got, err := ParseAddr(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseAddr(%q) err=%v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("ParseAddr(%q)=%x, want %x", tc.in, got, tc.want)
		}
		if tc.ok {
			back, _ := ParseAddr(string(AppendAddr(nil, got)))
			if back != got {
				t.Errorf("AppendAddr round trip of %x gave %x", got, back)
			}
		}
	}
}

func TestAddrClass(t *testing.T) {
	if !IsMulticastAddr(BroadcastAddr()) {
		t.Error("broadcast should be multicast")
	}
	if IsMulticastAddr([6]byte{0x00, 0xcf, 0x52, 0x49, 0xc3, 0x01}) {
		t.Error("unicast reported multicast")
	}
	if !IsLocalAddr([6]byte{0x02, 0x80, 0xad, 0x20, 0x31, 0xb8}) {
		t.Error("locally administered bit not detected")
	}
	if !IsZeroAddr([6]byte{}) || IsZeroAddr([6]byte{5: 1}) {
		t.Error("IsZeroAddr")
	}
}

func TestFrameFields(t *testing.T) {
	buf := make([]byte, MinFrameSize)
	efrm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	*efrm.DestinationHardwareAddr() = BroadcastAddr()
	*efrm.SourceHardwareAddr() = [6]byte{0x02, 1, 2, 3, 4, 5}
	efrm.SetEtherType(TypeARP)
	if !efrm.IsBroadcast() || efrm.EtherTypeOrSize() != TypeARP || efrm.IsVLAN() {
		t.Fatal("header fields not set")
	}
	if err := efrm.ValidateSize(); err != nil {
		t.Fatal(err)
	}
	efrm.SetEtherType(Type(len(buf)))
	if efrm.ValidateSize() == nil {
		t.Error("expected short frame error for oversize length field")
	}
	efrm.SetVLAN(1<<4, TypeIPv4)
	tag, et := efrm.VLAN()
	if !efrm.IsVLAN() || tag.VLANIdentifier() != 1 || et != TypeIPv4 || efrm.HeaderLength() != 18 {
		t.Errorf("VLAN fields: tag=%#x et=%#x", tag, et)
	}
	efrm.ClearHeader()
	if efrm.EtherTypeOrSize() != 0 {
		t.Error("header not cleared")
	}
	if _, err := NewFrame(buf[:10]); err == nil {
		t.Error("expected error for short buffer")
	}
}
