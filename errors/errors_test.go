package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhasePack,
				Kind:   KindTypeMismatch,
				Path:   []string{"hdr", "flags", "mode"},
				Type:   "int",
				Detail: "cannot convert",
				Offset: NoOffset,
			},
			contains: []string{"[pack]", "type_mismatch", "hdr.flags.mode", "int", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindTruncated,
				Offset: 12,
			},
			contains: []string{"[decode]", "truncated", "offset 12"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLibrary,
				Kind:   KindClosed,
				Detail: "library closed",
				Offset: NoOffset,
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[library]", "closed", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_NoOffsetOmitted(t *testing.T) {
	err := FieldMissing(PhasePack, []string{"b"}, "b")
	if strings.Contains(err.Error(), "offset") {
		t.Errorf("message %q should not mention an offset", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseUnpack,
		Kind:  KindOutOfBounds,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseUnpack, Kind: KindOutOfBounds}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseDecode, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseUnpack, Kind: KindTruncated}) {
		t.Error("Is should not match different kind")
	}

	if !errors.Is(err, UnpackError) {
		t.Error("errors.Is should match the phase sentinel")
	}
	if errors.Is(err, PackError) {
		t.Error("errors.Is should not match another phase sentinel")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseUnpack, KindOutOfBounds).
		Path("hdr", "len").
		Offset(16).
		Type("unsigned int").
		Value(42).
		Cause(cause).
		Detail("read %d bytes", 4).
		Build()

	if err.Phase != PhaseUnpack {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseUnpack)
	}
	if err.Kind != KindOutOfBounds {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
	}
	if err.PathString() != "hdr.len" {
		t.Errorf("Path = %v, want hdr.len", err.Path)
	}
	if err.Offset != 16 {
		t.Errorf("Offset = %d, want 16", err.Offset)
	}
	if err.Type != "unsigned int" {
		t.Errorf("Type = %q", err.Type)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "read 4 bytes" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestBuilder_DefaultsToNoOffset(t *testing.T) {
	err := New(PhaseEncode, KindUnsupported).Build()
	if err.Offset != NoOffset {
		t.Errorf("Offset = %d, want NoOffset", err.Offset)
	}
}

func TestBuilder_PathIsCopied(t *testing.T) {
	path := []string{"a", "b"}
	err := New(PhasePack, KindFieldMissing).Path(path...).Build()
	path[0] = "changed"
	if err.Path[0] != "a" {
		t.Error("builder must not alias the caller's path slice")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Truncated", func(t *testing.T) {
		err := Truncated(PhaseDecode, 3, 4, 1)
		if err.Kind != KindTruncated || err.Offset != 3 {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseUnpack, []string{"b"}, 4, 4, 6)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Offset != 4 {
			t.Errorf("Offset = %d, want 4", err.Offset)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhasePack, []string{"field"}, "bytes", "int")
		if err.Kind != KindTypeMismatch || err.Type != "int" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("FieldMissing", func(t *testing.T) {
		err := FieldMissing(PhasePack, []string{"b"}, "b")
		if err.Kind != KindFieldMissing {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldMissing)
		}
	})

	t.Run("FieldUnknown", func(t *testing.T) {
		err := FieldUnknown(PhasePack, []string{"extra"}, "extra")
		if err.Kind != KindFieldUnknown {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldUnknown)
		}
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		err := LengthMismatch(PhasePack, []string{"arr"}, 3, 4)
		if err.Kind != KindLengthMismatch || err.Value != uint64(3) {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhasePack, []string{"val"}, 300, "unsigned char")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != 300 {
			t.Errorf("Value = %v, want 300", err.Value)
		}
	})

	t.Run("Unresolved", func(t *testing.T) {
		err := Unresolved(PhaseDecode, 7, "node_t")
		if err.Kind != KindUnresolved || err.Offset != 7 {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("LimitExceeded", func(t *testing.T) {
		err := LimitExceeded(PhaseUnpack, nil, "depth", 8)
		if err.Kind != KindLimitExceeded {
			t.Errorf("Kind = %v", err.Kind)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		err := Closed(PhaseLibrary, "library")
		if !strings.Contains(err.Error(), "library closed") {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("NoType", func(t *testing.T) {
		err := NoType(PhaseRegistry)
		if !IsNoType(err) || !errors.Is(err, RegistryError) {
			t.Errorf("NoType = %v", err)
		}
		if IsNoType(InvalidInput(PhasePack, "no type")) {
			t.Error("IsNoType matched an invalid input error")
		}
		if !IsNoType(Wrap(PhasePack, KindInvalidData, err, "outer")) {
			t.Error("IsNoType should see through wrapping")
		}
	})
}
