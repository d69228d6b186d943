package service

import (
	"testing"

	"coinpilot/internal/model"
)

func TestValidateLots(t *testing.T) {
	cases := []struct {
		name    string
		gradual bool
		lots    []model.Lot
		wantErr bool
	}{
		{"非分批不校验", false, nil, false},
		{"比例合计100", true, []model.Lot{{SellPercent: 50}, {SellPercent: 50}}, false},
		{"三档合计100", true, []model.Lot{{SellPercent: 30}, {SellPercent: 30}, {SellPercent: 40}}, false},
		{"分批但没有档位", true, nil, true},
		{"合计不是100", true, []model.Lot{{SellPercent: 50}, {SellPercent: 40}}, true},
		{"存在零比例档位", true, []model.Lot{{SellPercent: 0}, {SellPercent: 100}}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := validateLots(c.gradual, c.lots)
			if (err != nil) != c.wantErr {
				t.Fatalf("gradual=%v lots=%v err=%v", c.gradual, c.lots, err)
			}
		})
	}
}

func TestNormalizeLots(t *testing.T) {
	in := []model.Lot{
		{LotNo: 9, SellPercent: 60, Executed: true, ExecutedPrice: 123},
		{LotNo: 3, SellPercent: 40},
	}
	out := normalizeLots(in)
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	for i, lot := range out {
		if lot.LotNo != i+1 {
			t.Fatalf("lot_no not renumbered: %+v", lot)
		}
		if lot.Executed || lot.ExecutedAt != nil || lot.ExecutedPrice != 0 {
			t.Fatalf("execution marks should be cleared: %+v", lot)
		}
	}
	if out[0].SellPercent != 60 || out[1].SellPercent != 40 {
		t.Fatal("sell percent changed")
	}
}

func TestMaskKey(t *testing.T) {
	if got := maskKey("abcd1234efgh5678"); got != "abcd****5678" {
		t.Fatalf("maskKey long = %s", got)
	}
	if got := maskKey("short"); got != "*****" {
		t.Fatalf("maskKey short = %s", got)
	}
	if got := maskKey(""); got != "" {
		t.Fatalf("maskKey empty = %q", got)
	}
}
