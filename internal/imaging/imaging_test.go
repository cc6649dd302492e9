package imaging

import (
	"context"
	"testing"
)

func TestGeometryValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		geom    Geometry
		wantErr bool
	}{
		{name: "valid", geom: Geometry{MaxWidth: 250, MaxHeight: 250, CanvasWidth: 256, CanvasHeight: 256}},
		{name: "zero box", geom: Geometry{CanvasWidth: 256, CanvasHeight: 256}, wantErr: true},
		{name: "zero canvas", geom: Geometry{MaxWidth: 250, MaxHeight: 250}, wantErr: true},
		{name: "negative", geom: Geometry{MaxWidth: -1, MaxHeight: 250, CanvasWidth: 256, CanvasHeight: 256}, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.geom.validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestNormalizeGeometry_RejectsInvalidGeometry(t *testing.T) {
	p := NewShellPipeline()
	err := p.NormalizeGeometry(context.Background(), "whatever.png", Geometry{})
	if err == nil {
		t.Error("expected error for invalid geometry before any tool invocation")
	}
}
