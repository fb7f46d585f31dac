package rules

import (
	"debug/pe"
	"testing"

	"github.com/xcbat/binskim/internal/pefile"
)

// TestGateNativeImage tests the shared applicability gate.
func TestGateNativeImage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		image      *pefile.Image
		wantOK     bool
		wantReason string
	}{
		{
			name: "native executable is applicable",
			image: &pefile.Image{
				Machine:           pe.IMAGE_FILE_MACHINE_AMD64,
				Characteristics:   pefile.CharacteristicExecutableImage,
				HasOptionalHeader: true,
			},
			wantOK: true,
		},
		{
			name: "native dll is applicable",
			image: &pefile.Image{
				Machine:           pe.IMAGE_FILE_MACHINE_ARM64,
				Characteristics:   pefile.CharacteristicExecutableImage | pefile.CharacteristicDLL,
				HasOptionalHeader: true,
			},
			wantOK: true,
		},
		{
			name: "object file is rejected",
			image: &pefile.Image{
				Machine: pe.IMAGE_FILE_MACHINE_AMD64,
			},
			wantReason: ReasonNotExecutableImage,
		},
		{
			name: "unsupported machine is rejected",
			image: &pefile.Image{
				Machine:           0x0166, // MIPS R4000
				Characteristics:   pefile.CharacteristicExecutableImage,
				HasOptionalHeader: true,
			},
			wantReason: ReasonUnsupportedMachine,
		},
		{
			name: "managed assembly is rejected",
			image: &pefile.Image{
				Machine:           pe.IMAGE_FILE_MACHINE_AMD64,
				Characteristics:   pefile.CharacteristicExecutableImage,
				HasOptionalHeader: true,
				CLRHeaderSize:     72,
			},
			wantReason: ReasonManagedAssembly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, reason := gateNativeImage(tt.image)
			if ok != tt.wantOK {
				t.Errorf("gateNativeImage() ok = %v, want %v", ok, tt.wantOK)
			}
			if reason != tt.wantReason {
				t.Errorf("gateNativeImage() reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}
