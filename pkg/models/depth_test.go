package models

import "testing"

func TestDepth_CostOrdering(t *testing.T) {
	if !(DepthSmoke.Cost() < DepthFeature.Cost() && DepthFeature.Cost() < DepthFull.Cost()) {
		t.Errorf("depth costs not strictly ordered: smoke=%d feature=%d full=%d",
			DepthSmoke.Cost(), DepthFeature.Cost(), DepthFull.Cost())
	}
	if Depth("none").Cost() != 0 {
		t.Errorf("unknown depth cost = %d, want 0", Depth("none").Cost())
	}
}

func TestParseDepth(t *testing.T) {
	tests := []struct {
		in      string
		want    Depth
		wantErr bool
	}{
		{"smoke", DepthSmoke, false},
		{"FEATURE", DepthFeature, false},
		{" full ", DepthFull, false},
		{"", "", true},
		{"deep", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDepth(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDepth(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDepth(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
