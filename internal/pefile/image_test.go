package pefile

import (
	"debug/pe"
	"os"
	"path/filepath"
	"testing"
)

// TestImagePredicates tests the header predicate methods on constructed images.
func TestImagePredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		image         Image
		wantExec      bool
		wantDLL       bool
		wantManaged   bool
		wantSupported bool
	}{
		{
			name: "native 64-bit executable",
			image: Image{
				Machine:           pe.IMAGE_FILE_MACHINE_AMD64,
				Characteristics:   CharacteristicExecutableImage,
				HasOptionalHeader: true,
				Is64Bit:           true,
			},
			wantExec:      true,
			wantSupported: true,
		},
		{
			name: "native 32-bit dll",
			image: Image{
				Machine:           pe.IMAGE_FILE_MACHINE_I386,
				Characteristics:   CharacteristicExecutableImage | CharacteristicDLL,
				HasOptionalHeader: true,
			},
			wantExec:      true,
			wantDLL:       true,
			wantSupported: true,
		},
		{
			name: "managed assembly",
			image: Image{
				Machine:           pe.IMAGE_FILE_MACHINE_AMD64,
				Characteristics:   CharacteristicExecutableImage,
				HasOptionalHeader: true,
				CLRHeaderSize:     72,
			},
			wantExec:      true,
			wantManaged:   true,
			wantSupported: true,
		},
		{
			name: "object file without optional header",
			image: Image{
				Machine: pe.IMAGE_FILE_MACHINE_AMD64,
			},
			wantSupported: true,
		},
		{
			name: "unknown machine",
			image: Image{
				Machine:           pe.IMAGE_FILE_MACHINE_UNKNOWN,
				Characteristics:   CharacteristicExecutableImage,
				HasOptionalHeader: true,
			},
			wantExec: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.image.IsExecutableImage(); got != tt.wantExec {
				t.Errorf("IsExecutableImage() = %v, want %v", got, tt.wantExec)
			}
			if got := tt.image.IsDLL(); got != tt.wantDLL {
				t.Errorf("IsDLL() = %v, want %v", got, tt.wantDLL)
			}
			if got := tt.image.IsManaged(); got != tt.wantManaged {
				t.Errorf("IsManaged() = %v, want %v", got, tt.wantManaged)
			}
			if got := tt.image.IsSupportedMachine(); got != tt.wantSupported {
				t.Errorf("IsSupportedMachine() = %v, want %v", got, tt.wantSupported)
			}
		})
	}
}

// TestMachineName tests machine-type naming.
func TestMachineName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		machine uint16
		want    string
	}{
		{name: "amd64", machine: pe.IMAGE_FILE_MACHINE_AMD64, want: "x86-64"},
		{name: "i386", machine: pe.IMAGE_FILE_MACHINE_I386, want: "x86"},
		{name: "arm64", machine: pe.IMAGE_FILE_MACHINE_ARM64, want: "arm64"},
		{name: "armnt", machine: pe.IMAGE_FILE_MACHINE_ARMNT, want: "arm"},
		{name: "unknown", machine: pe.IMAGE_FILE_MACHINE_UNKNOWN, want: "unknown"},
		{name: "other", machine: 0x9999, want: "machine(0x9999)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			im := Image{Machine: tt.machine}
			if got := im.MachineName(); got != tt.want {
				t.Errorf("MachineName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestSectionPredicates tests section-level predicates and lookup.
func TestSectionPredicates(t *testing.T) {
	t.Parallel()

	t.Run("executable section detection", func(t *testing.T) {
		t.Parallel()

		code := Section{Name: ".text", Characteristics: SectionCntCode | SectionMemExecute}
		data := Section{Name: ".data", Characteristics: 0xC0000040}

		if !code.IsExecutable() {
			t.Error("expected .text to be executable")
		}
		if data.IsExecutable() {
			t.Error("expected .data to not be executable")
		}
	})

	t.Run("has executable section", func(t *testing.T) {
		t.Parallel()

		im := Image{Sections: []Section{
			{Name: ".rsrc", Characteristics: 0x40000040},
		}}
		if im.HasExecutableSection() {
			t.Error("expected no executable section")
		}

		im.Sections = append(im.Sections, Section{Name: ".text", Characteristics: SectionMemExecute})
		if !im.HasExecutableSection() {
			t.Error("expected executable section to be found")
		}
	})

	t.Run("section by number", func(t *testing.T) {
		t.Parallel()

		im := Image{Sections: []Section{
			{Name: ".text"},
			{Name: ".data"},
		}}

		s, ok := im.SectionByNumber(1)
		if !ok || s.Name != ".text" {
			t.Errorf("SectionByNumber(1) = %q, %v; want .text, true", s.Name, ok)
		}

		if _, ok := im.SectionByNumber(0); ok {
			t.Error("expected section number 0 to be rejected")
		}
		if _, ok := im.SectionByNumber(3); ok {
			t.Error("expected out-of-range section number to be rejected")
		}
		if _, ok := im.SectionByNumber(-1); ok {
			t.Error("expected negative section number to be rejected")
		}
	})
}

// TestOpenMissingFile tests that opening a nonexistent file fails cleanly.
func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Open("testdata/does-not-exist.exe"); err == nil {
		t.Error("expected error for missing file")
	}
}

// TestOpenNotPE tests that opening a non-PE file fails cleanly.
func TestOpenNotPE(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-a-pe.bin")
	if err := os.WriteFile(path, []byte("this is not a portable executable"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Error("expected error for non-PE file")
	}
}
