package pefile

import (
	"crypto/sha256"
	"debug/pe"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// PE file header characteristics flags.
const (
	// CharacteristicExecutableImage marks a linked executable image
	// (as opposed to an object file).
	CharacteristicExecutableImage = 0x0002

	// CharacteristicDLL marks a dynamic library image.
	CharacteristicDLL = 0x2000
)

// Section characteristics flags.
const (
	// SectionCntCode marks a section containing executable code.
	SectionCntCode = 0x00000020

	// SectionMemExecute marks a section mapped executable at runtime.
	SectionMemExecute = 0x20000000
)

// comDescriptorDirectory is the index of the CLR runtime header in the
// optional header data directories. A non-zero size means the image is a
// managed assembly.
const comDescriptorDirectory = 14

// Section is the header view of one image section.
type Section struct {
	// Name is the section name (for example ".text").
	Name string

	// VirtualSize is the size of the section when loaded.
	VirtualSize uint32

	// Characteristics holds the section flag bits.
	Characteristics uint32
}

// IsExecutable reports whether the section contains or maps executable code.
func (s Section) IsExecutable() bool {
	return s.Characteristics&(SectionCntCode|SectionMemExecute) != 0
}

// CoffSymbol is one record from the image's COFF symbol table.
// Only the fields needed for the debug-symbol index are retained.
type CoffSymbol struct {
	// Name is the symbol name with the COFF string table already resolved.
	Name string

	// SectionNumber is the 1-based index of the defining section.
	// Zero and negative values denote undefined and special symbols.
	SectionNumber int16

	// Type is the COFF symbol type word; the upper nibble distinguishes
	// functions from data.
	Type uint16

	// StorageClass is the COFF storage class (2 = external).
	StorageClass uint8
}

// Image is an immutable header view of one PE file.
// All fields are populated by Open; an Image holds no open file handle.
type Image struct {
	// Path is the file path the image was opened from.
	Path string

	// Digest is the SHA-256 digest of the file contents, hex encoded.
	Digest string

	// Machine is the COFF machine type (pe.IMAGE_FILE_MACHINE_*).
	Machine uint16

	// Characteristics holds the COFF file header flag bits.
	Characteristics uint16

	// Subsystem is the PE subsystem from the optional header.
	// Zero when the file has no optional header (object files).
	Subsystem uint16

	// DLLCharacteristics holds the optional header DLL characteristics.
	DLLCharacteristics uint16

	// Is64Bit is true for PE32+ images.
	Is64Bit bool

	// HasOptionalHeader is false for object files.
	HasOptionalHeader bool

	// CLRHeaderSize is the size of the COM descriptor data directory.
	// Non-zero for managed assemblies.
	CLRHeaderSize uint32

	// Sections holds the section headers in file order.
	Sections []Section

	// CoffSymbols holds the COFF symbol table records, if present.
	// Stripped release binaries typically have none.
	CoffSymbols []CoffSymbol
}

// Open reads the PE file at path and returns its header view.
// The file is fully read and closed before Open returns.
func Open(path string) (*Image, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pe: %w", err)
	}
	defer f.Close()

	digest, err := fileDigest(path)
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}

	im := &Image{
		Path:            path,
		Digest:          digest,
		Machine:         f.FileHeader.Machine,
		Characteristics: f.FileHeader.Characteristics,
	}

	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		im.HasOptionalHeader = true
		im.Subsystem = oh.Subsystem
		im.DLLCharacteristics = oh.DllCharacteristics
		if int(comDescriptorDirectory) < len(oh.DataDirectory) {
			im.CLRHeaderSize = oh.DataDirectory[comDescriptorDirectory].Size
		}
	case *pe.OptionalHeader64:
		im.HasOptionalHeader = true
		im.Is64Bit = true
		im.Subsystem = oh.Subsystem
		im.DLLCharacteristics = oh.DllCharacteristics
		if int(comDescriptorDirectory) < len(oh.DataDirectory) {
			im.CLRHeaderSize = oh.DataDirectory[comDescriptorDirectory].Size
		}
	}

	for _, s := range f.Sections {
		im.Sections = append(im.Sections, Section{
			Name:            s.Name,
			VirtualSize:     s.VirtualSize,
			Characteristics: s.Characteristics,
		})
	}

	for _, sym := range f.Symbols {
		im.CoffSymbols = append(im.CoffSymbols, CoffSymbol{
			Name:          sym.Name,
			SectionNumber: sym.SectionNumber,
			Type:          sym.Type,
			StorageClass:  sym.StorageClass,
		})
	}

	return im, nil
}

// fileDigest computes the SHA-256 digest of the file at path.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided artifact path is intentional
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsExecutableImage reports whether the file is a linked executable image
// rather than an object file.
func (im *Image) IsExecutableImage() bool {
	return im.HasOptionalHeader && im.Characteristics&CharacteristicExecutableImage != 0
}

// IsDLL reports whether the image is a dynamic library.
func (im *Image) IsDLL() bool {
	return im.Characteristics&CharacteristicDLL != 0
}

// IsManaged reports whether the image is a managed (IL-only capable)
// assembly, determined by the presence of the CLR runtime header.
func (im *Image) IsManaged() bool {
	return im.CLRHeaderSize > 0
}

// MachineName returns a human-readable name for the machine type.
func (im *Image) MachineName() string {
	switch im.Machine {
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "x86-64"
	case pe.IMAGE_FILE_MACHINE_I386:
		return "x86"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "arm64"
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		return "arm"
	case pe.IMAGE_FILE_MACHINE_UNKNOWN:
		return "unknown"
	default:
		return fmt.Sprintf("machine(0x%x)", im.Machine)
	}
}

// IsSupportedMachine reports whether the machine type is a native
// architecture the analysis rules understand.
func (im *Image) IsSupportedMachine() bool {
	switch im.Machine {
	case pe.IMAGE_FILE_MACHINE_AMD64,
		pe.IMAGE_FILE_MACHINE_I386,
		pe.IMAGE_FILE_MACHINE_ARM64,
		pe.IMAGE_FILE_MACHINE_ARMNT:
		return true
	default:
		return false
	}
}

// HasExecutableSection reports whether any section is marked executable.
// This is a header-level fact; whether symbols actually contribute code to
// such a section is answered by the debug-symbol index.
func (im *Image) HasExecutableSection() bool {
	for _, s := range im.Sections {
		if s.IsExecutable() {
			return true
		}
	}
	return false
}

// SectionByNumber returns the section for a 1-based COFF section number.
func (im *Image) SectionByNumber(n int16) (Section, bool) {
	if n <= 0 || int(n) > len(im.Sections) {
		return Section{}, false
	}
	return im.Sections[n-1], true
}
