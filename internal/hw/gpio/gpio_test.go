package gpio

import "testing"

func TestMockDriver_ReadReturnsWrittenLevel(t *testing.T) {
	m := NewMockDriver()
	if err := m.WritePin(17, High); err != nil {
		t.Fatalf("WritePin error: %v", err)
	}
	level, err := m.ReadPin(17)
	if err != nil {
		t.Fatalf("ReadPin error: %v", err)
	}
	if level != High {
		t.Errorf("level = %v, want High", level)
	}
}

func TestMockDriver_UnwrittenPinReadsLow(t *testing.T) {
	m := NewMockDriver()
	level, err := m.ReadPin(5)
	if err != nil {
		t.Fatalf("ReadPin error: %v", err)
	}
	if level != Low {
		t.Errorf("level = %v, want Low", level)
	}
}

func TestMockDriver_RecordsWriteSequence(t *testing.T) {
	m := NewMockDriver()
	m.WritePin(27, High)
	m.WritePin(27, Low)
	m.WritePin(17, High)

	writes := m.Writes()
	want := []Write{{27, High}, {27, Low}, {17, High}}
	if len(writes) != len(want) {
		t.Fatalf("writes = %d, want %d", len(writes), len(want))
	}
	for i, w := range want {
		if writes[i] != w {
			t.Errorf("write %d = %+v, want %+v", i, writes[i], w)
		}
	}
}

func TestMockDriver_SetLevelPrimesInput(t *testing.T) {
	m := NewMockDriver()
	m.SetLevel(17, High)
	level, _ := m.ReadPin(17)
	if level != High {
		t.Errorf("level = %v, want High", level)
	}
	// Priming is not a write.
	if got := len(m.Writes()); got != 0 {
		t.Errorf("writes = %d, want 0", got)
	}
}

func TestNewDriver_Mock(t *testing.T) {
	d, err := NewDriver(true)
	if err != nil {
		t.Fatalf("NewDriver(true) error: %v", err)
	}
	if _, ok := d.(*MockDriver); !ok {
		t.Errorf("NewDriver(true) = %T, want *MockDriver", d)
	}
}
