package catalog

import "testing"

func TestEffectivePrice(t *testing.T) {
	cases := []struct {
		name      string
		base      int64
		overrides []*PriceOverride
		want      int64
	}{
		{"no overrides", 1000, nil, 1000},
		{"percent discount", 1000, []*PriceOverride{
			{Kind: OverridePercent, Value: -10, Active: true},
		}, 900},
		{"percent markup", 1000, []*PriceOverride{
			{Kind: OverridePercent, Value: 15, Active: true},
		}, 1150},
		{"fixed override", 1000, []*PriceOverride{
			{Kind: OverrideFixed, Value: 750, Active: true},
		}, 750},
		{"fixed wins over percent", 1000, []*PriceOverride{
			{Kind: OverridePercent, Value: -10, Active: true},
			{Kind: OverrideFixed, Value: 750, Active: true},
		}, 750},
		{"inactive override ignored", 1000, []*PriceOverride{
			{Kind: OverrideFixed, Value: 750, Active: false},
		}, 1000},
		{"never negative", 100, []*PriceOverride{
			{Kind: OverridePercent, Value: -150, Active: true},
		}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EffectivePrice(tc.base, tc.overrides); got != tc.want {
				t.Errorf("EffectivePrice(%d) = %d, want %d", tc.base, got, tc.want)
			}
		})
	}
}
