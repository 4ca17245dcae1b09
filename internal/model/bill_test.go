package model

import "testing"

func TestOriginatingChamber(t *testing.T) {
	tests := []struct {
		number string
		want   Chamber
	}{
		{"hb1", ChamberHouse},
		{"HB1234", ChamberHouse},
		{"hj5", ChamberHouse},
		{"hr10", ChamberHouse},
		{"sb22", ChamberSenate},
		{"SJ3", ChamberSenate},
		{"sr4", ChamberSenate},
		{"xx9", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			if got := OriginatingChamber(tt.number); got != tt.want {
				t.Errorf("OriginatingChamber(%q) = %q, want %q", tt.number, got, tt.want)
			}
		})
	}
}

func TestBill_CrossesChambers(t *testing.T) {
	for _, number := range []string{"hb1", "sb2", "hj3", "sj4"} {
		if !(Bill{Number: number}).CrossesChambers() {
			t.Errorf("expected %s to cross chambers", number)
		}
	}
	for _, number := range []string{"hr1", "sr2", "", "zz1"} {
		if (Bill{Number: number}).CrossesChambers() {
			t.Errorf("expected %s to stay in one chamber", number)
		}
	}
}

func TestChamberFromCode(t *testing.T) {
	cases := map[string]Chamber{
		"H":      ChamberHouse,
		" s ":    ChamberSenate,
		"House":  ChamberHouse,
		"SENATE": ChamberSenate,
		"J":      "",
		"":       "",
	}
	for code, want := range cases {
		if got := ChamberFromCode(code); got != want {
			t.Errorf("ChamberFromCode(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestChamber_Opposite(t *testing.T) {
	if ChamberHouse.Opposite() != ChamberSenate {
		t.Error("expected house opposite to be senate")
	}
	if ChamberSenate.Opposite() != ChamberHouse {
		t.Error("expected senate opposite to be house")
	}
	if Chamber("").Opposite() != "" {
		t.Error("expected unknown chamber to stay unknown")
	}
}

func TestChamberCeiling_For(t *testing.T) {
	cc := ChamberCeiling{House: 80, Senate: 25}
	if cc.For(ChamberHouse) != 80 || cc.For(ChamberSenate) != 25 || cc.For("") != 0 {
		t.Errorf("unexpected ceilings: %+v", cc)
	}
}

func TestChamber_ValidAndCode(t *testing.T) {
	tests := []struct {
		chamber Chamber
		valid   bool
		code    string
	}{
		{ChamberHouse, true, "H"},
		{ChamberSenate, true, "S"},
		{ChamberFromCode("J"), false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		if got := tt.chamber.Valid(); got != tt.valid {
			t.Errorf("%q.Valid() = %v, want %v", tt.chamber, got, tt.valid)
		}
		if got := tt.chamber.Code(); got != tt.code {
			t.Errorf("%q.Code() = %q, want %q", tt.chamber, got, tt.code)
		}
	}
}
