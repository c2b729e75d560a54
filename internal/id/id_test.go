package id

import (
	"testing"

	"github.com/lherron/clara/internal/domain"
)

func TestFormatFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(int64) string
		id   int64
		want string
	}{
		{name: "workspace", fn: FormatWorkspace, id: 1, want: "W-00001"},
		{name: "project", fn: FormatProject, id: 99999, want: "P-99999"},
		{name: "task", fn: FormatTask, id: 42, want: "T-00042"},
		{name: "task beyond five digits", fn: FormatTask, id: 123456, want: "T-123456"},
		{name: "note", fn: FormatNote, id: 7, want: "N-00007"},
		{name: "event", fn: FormatEvent, id: 8, want: "E-00008"},
		{name: "reminder", fn: FormatReminder, id: 9, want: "R-00009"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.id); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType Type
		wantID   int64
		wantErr  bool
	}{
		{name: "workspace", input: "W-00001", wantType: TypeWorkspace, wantID: 1},
		{name: "project", input: "P-00012", wantType: TypeProject, wantID: 12},
		{name: "task", input: "T-00042", wantType: TypeTask, wantID: 42},
		{name: "short digits", input: "T-7", wantType: TypeTask, wantID: 7},
		{name: "long digits", input: "T-1234567", wantType: TypeTask, wantID: 1234567},
		{name: "lowercase prefix", input: "t-00003", wantType: TypeTask, wantID: 3},
		{name: "with whitespace", input: "  R-00001  ", wantType: TypeReminder, wantID: 1},

		{name: "empty string", input: "", wantErr: true},
		{name: "wrong format", input: "INVALID", wantErr: true},
		{name: "missing hyphen", input: "T00001", wantErr: true},
		{name: "non-numeric", input: "T-ABCDE", wantErr: true},
		{name: "unknown prefix", input: "X-00001", wantErr: true},
		{name: "zero", input: "T-00000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotID, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("Parse() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if gotType != tt.wantType {
				t.Errorf("Parse() type = %v, want %v", gotType, tt.wantType)
			}
			if gotID != tt.wantID {
				t.Errorf("Parse() id = %v, want %v", gotID, tt.wantID)
			}
		})
	}
}

func TestParseAs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Type
		wantID  int64
		wantErr bool
	}{
		{name: "bare number", input: "17", want: TypeTask, wantID: 17},
		{name: "matching prefix", input: "T-00017", want: TypeTask, wantID: 17},
		{name: "mismatched prefix", input: "P-00017", want: TypeTask, wantErr: true},
		{name: "negative number", input: "-3", want: TypeTask, wantErr: true},
		{name: "zero", input: "0", want: TypeWorkspace, wantErr: true},
		{name: "garbage", input: "seventeen", want: TypeTask, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAs(tt.input, tt.want)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAs(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAs(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.wantID {
				t.Errorf("ParseAs(%q) = %d, want %d", tt.input, got, tt.wantID)
			}
		})
	}
}

func TestParseOwner(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    domain.OwnerRef
		wantErr bool
	}{
		{name: "workspace friendly", input: "W-00002", want: domain.WorkspaceOwner(2)},
		{name: "project friendly", input: "P-00003", want: domain.ProjectOwner(3)},
		{name: "task friendly", input: "T-00004", want: domain.TaskOwner(4)},
		{name: "kind:id", input: "task:9", want: domain.TaskOwner(9)},
		{name: "kind:id uppercase kind", input: "Project:5", want: domain.ProjectOwner(5)},
		{name: "note cannot own", input: "N-00001", wantErr: true},
		{name: "unknown kind", input: "note:1", wantErr: true},
		{name: "non-numeric id", input: "task:x", wantErr: true},
		{name: "zero id", input: "workspace:0", wantErr: true},
		{name: "bare number is ambiguous", input: "12", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOwner(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseOwner(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOwner(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseOwner(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatOwnerRoundtrip(t *testing.T) {
	for _, owner := range []domain.OwnerRef{
		domain.WorkspaceOwner(1),
		domain.ProjectOwner(22),
		domain.TaskOwner(333),
	} {
		formatted := FormatOwner(owner)
		parsed, err := ParseOwner(formatted)
		if err != nil {
			t.Fatalf("ParseOwner(%q) error: %v", formatted, err)
		}
		if parsed != owner {
			t.Errorf("roundtrip %v -> %q -> %v", owner, formatted, parsed)
		}
	}
}

func TestIsUUID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "valid", input: "123e4567-e89b-12d3-a456-426614174000", want: true},
		{name: "uppercase", input: "123E4567-E89B-12D3-A456-426614174000", want: true},
		{name: "missing hyphens", input: "123e4567e89b12d3a456426614174000", want: false},
		{name: "wrong format", input: "not-a-uuid", want: false},
		{name: "too short", input: "123e4567-e89b-12d3", want: false},
		{name: "empty", input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUUID(tt.input); got != tt.want {
				t.Errorf("IsUUID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsFriendlyID(t *testing.T) {
	if !IsFriendlyID("E-00004") {
		t.Error("expected E-00004 to be a friendly ID")
	}
	if IsFriendlyID("4") {
		t.Error("bare numbers are not friendly IDs")
	}
}
