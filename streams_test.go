package spawn

import (
	"os"
	"testing"
)

func TestProcessStreamsWith(t *testing.T) {
	base := PipeStreams()
	derived := base.With(FDStdout, NullFD())

	if d, _ := base.Descriptor(FDStdout); d.Kind != KindPipeWrite {
		t.Errorf("base stdout kind = %v, want pipe-write", d.Kind)
	}
	if d, _ := derived.Descriptor(FDStdout); d.Kind != KindNull {
		t.Errorf("derived stdout kind = %v, want null", d.Kind)
	}
}

func TestProcessStreamsPresets(t *testing.T) {
	cases := []struct {
		name    string
		streams ProcessStreams
		want    [3]StreamKind
	}{
		{"pipes", PipeStreams(), [3]StreamKind{KindPipeRead, KindPipeWrite, KindPipeWrite}},
		{"inherit", InheritStreams(), [3]StreamKind{KindInherit, KindInherit, KindInherit}},
		{"null", NullStreams(), [3]StreamKind{KindNull, KindNull, KindNull}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for fd := 0; fd < 3; fd++ {
				d, ok := tc.streams.Descriptor(fd)
				if !ok {
					t.Fatalf("fd %d not configured", fd)
				}
				if d.Kind != tc.want[fd] {
					t.Errorf("fd %d kind = %v, want %v", fd, d.Kind, tc.want[fd])
				}
			}
		})
	}
}

func TestProcessStreamsMaxFD(t *testing.T) {
	if got := (ProcessStreams{}).MaxFD(); got != -1 {
		t.Errorf("empty MaxFD = %d, want -1", got)
	}
	ps := PipeStreams().With(5, PipeTo())
	if got := ps.MaxFD(); got != 5 {
		t.Errorf("MaxFD = %d, want 5", got)
	}
}

func TestStreamDescriptorConstructors(t *testing.T) {
	if d := ReadFile("/tmp/x"); d.Kind != KindFile || d.Flags != os.O_RDONLY {
		t.Errorf("ReadFile = %+v", d)
	}
	if d := WriteFile("/tmp/x"); d.Kind != KindFile || d.Flags&os.O_TRUNC == 0 {
		t.Errorf("WriteFile = %+v", d)
	}
	if d := AppendFile("/tmp/x"); d.Kind != KindFile || d.Flags&os.O_APPEND == 0 {
		t.Errorf("AppendFile = %+v", d)
	}
	if d := NullFD(); d.Kind != KindNull {
		t.Errorf("NullFD = %+v", d)
	}
}

func TestStreamKindString(t *testing.T) {
	kinds := map[StreamKind]string{
		KindPipeRead:  "pipe-read",
		KindPipeWrite: "pipe-write",
		KindFile:      "file",
		KindInherit:   "inherit",
		KindHandle:    "handle",
		KindNull:      "null",
		KindUnset:     "unset",
	}
	for k, want := range kinds {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}
