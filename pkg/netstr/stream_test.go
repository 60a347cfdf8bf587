package netstr

import (
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"testing"
	"testing/iotest"
)

// chunkReader returns one chunk per Read call and counts the calls.
type chunkReader struct {
	chunks [][]byte
	reads  int
}

func newChunkReader(chunks ...string) *chunkReader {
	r := &chunkReader{}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return r
}

func (r *chunkReader) Read(p []byte) (int, error) {
	r.reads++
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// splitInto cuts data into n non-empty pieces at random positions.
func splitInto(rng *rand.Rand, data []byte, n int) [][]byte {
	if n <= 1 || len(data) <= 1 {
		return [][]byte{data}
	}
	n = min(n, len(data))
	cuts := rng.Perm(len(data) - 1)[:n-1]
	marks := make([]bool, len(data))
	for _, c := range cuts {
		marks[c+1] = true
	}
	var pieces [][]byte
	start := 0
	for i := 1; i < len(data); i++ {
		if marks[i] {
			pieces = append(pieces, data[start:i])
			start = i
		}
	}
	return append(pieces, data[start:])
}

func decodeAll(t *testing.T, dec *Decoder) []string {
	t.Helper()
	var got []string
	for {
		data, err := dec.Decode()
		if err == io.EOF {
			return got
		}
		if err != nil {
			t.Fatalf("decode %d failed: %v", len(got), err)
		}
		got = append(got, string(data))
	}
}

func TestDecoder_Stream_OneByteReads(t *testing.T) {
	input := "5:hello,0:,11:hello world,"
	dec := NewDecoder(iotest.OneByteReader(strings.NewReader(input)))
	got := decodeAll(t, dec)
	want := []string{"hello", "", "hello world"}
	if strings.Join(got, "|") != strings.Join(want, "|") || len(got) != len(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecoder_Stream_HalfReads(t *testing.T) {
	input := "5:hello,5:world,"
	dec := NewDecoder(iotest.HalfReader(strings.NewReader(input)), BufferSize(4))
	got := decodeAll(t, dec)
	if strings.Join(got, "|") != "hello|world" {
		t.Errorf("got %q", got)
	}
}

func TestDecoder_Stream_SplitEverywhere(t *testing.T) {
	input := "3:abc,10:0123456789,"
	want := "abc|0123456789"

	for i := 1; i < len(input); i++ {
		r := newChunkReader(input[:i], input[i:])
		got := decodeAll(t, NewDecoder(r))
		if strings.Join(got, "|") != want {
			t.Errorf("split at %d: got %q", i, got)
		}
	}
}

func TestDecoder_Stream_Equivalence(t *testing.T) {
	values := []string{"hello", "", "world", "3:abc,", "\x00\xff", strings.Repeat("z", 4000), "x"}
	var stream []byte
	for _, v := range values {
		stream = Append(stream, []byte(v))
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for _, pieces := range []int{1, len(values), len(values) + 7} {
		r := &chunkReader{chunks: splitInto(rng, stream, pieces)}
		got := decodeAll(t, NewDecoder(r))
		if len(got) != len(values) {
			t.Fatalf("%d pieces: got %d values, want %d", pieces, len(got), len(values))
		}
		for i := range values {
			if got[i] != values[i] {
				t.Errorf("%d pieces: value %d = %q, want %q", pieces, i, got[i], values[i])
			}
		}
	}
}

func TestDecoder_Stream_NoReadWhileValueBuffered(t *testing.T) {
	// TimeoutReader fails the second Read, so a decoder that reads before
	// using what it already holds would fail on the second value.
	dec := NewDecoder(iotest.TimeoutReader(strings.NewReader("5:hello,5:world,")))

	for _, want := range []string{"hello", "world"} {
		data, err := dec.Decode()
		if err != nil {
			t.Fatalf("decoding %q: %v", want, err)
		}
		if string(data) != want {
			t.Errorf("got %q, want %q", data, want)
		}
	}

	_, err := dec.Decode()
	if !errors.Is(err, iotest.ErrTimeout) {
		t.Errorf("expected the source error, got %v", err)
	}
}

func TestDecoder_Stream_CountsReads(t *testing.T) {
	r := newChunkReader("1:a,1:b,1:", "c,")
	dec := NewDecoder(r)

	dec.Decode()
	dec.Decode()
	if r.reads != 1 {
		t.Errorf("reads after two buffered values = %d, want 1", r.reads)
	}
	data, err := dec.Decode()
	if err != nil || string(data) != "c" {
		t.Fatalf("got %q, %v", data, err)
	}
	if r.reads != 2 {
		t.Errorf("reads after third value = %d, want 2", r.reads)
	}
}

func TestDecoder_Stream_LimitBeforePayload(t *testing.T) {
	r := newChunkReader("6:", "abcdef,")
	dec := NewDecoder(r, MaxLength(5))
	_, err := dec.Decode()
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if r.reads != 1 {
		t.Errorf("payload was read: %d reads", r.reads)
	}
	if dec.buffered() != 2 {
		t.Errorf("buffered = %d, want only the size field", dec.buffered())
	}
}

func TestDecoder_Stream_TooWideWithOneByteReads(t *testing.T) {
	r := iotest.OneByteReader(strings.NewReader(strings.Repeat("1", 50)))
	dec := NewDecoder(r)
	_, err := dec.Decode()
	if !errors.Is(err, ErrSizeTooWide) {
		t.Fatalf("expected ErrSizeTooWide, got %v", err)
	}
	if dec.buffered() != MaxSizeDigits+1 {
		t.Errorf("buffered %d bytes before deciding", dec.buffered())
	}
}

func TestDecoder_Stream_DataWithEOF(t *testing.T) {
	dec := NewDecoder(iotest.DataErrReader(strings.NewReader("5:hello,")))
	got := decodeAll(t, dec)
	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestDecoder_Stream_DataWithEOFTruncated(t *testing.T) {
	dec := NewDecoder(iotest.DataErrReader(strings.NewReader("5:hell")))
	_, err := dec.Decode()
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

// errAfterReader returns data together with err on the first Read.
type errAfterReader struct {
	data []byte
	err  error
}

func (r *errAfterReader) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, r.err
}

func TestDecoder_Stream_SourceErrorAfterValue(t *testing.T) {
	boom := errors.New("boom")
	dec := NewDecoder(&errAfterReader{data: []byte("5:hello,5:wor"), err: boom})

	data, err := dec.Decode()
	if err != nil {
		t.Fatalf("bytes read with the error should still decode: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}

	_, err = dec.Decode()
	if err != boom {
		t.Errorf("expected source error, got %v", err)
	}
	if _, again := dec.Decode(); again != boom {
		t.Errorf("expected sticky source error, got %v", again)
	}
}

func TestDecoder_Stream_NoProgress(t *testing.T) {
	dec := NewDecoder(&errAfterReader{})
	_, err := dec.Decode()
	if err != io.ErrNoProgress {
		t.Errorf("expected io.ErrNoProgress, got %v", err)
	}
}

func TestDecoder_Stream_LargePayloadSmallBuffer(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 1000)
	var stream []byte
	stream = Append(stream, payload)
	stream = Append(stream, []byte("tail"))

	dec := NewDecoder(bytes.NewReader(stream), BufferSize(7))
	data, err := dec.Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("payload mismatch: got %d bytes", len(data))
	}
	data, err = dec.Decode()
	if err != nil || string(data) != "tail" {
		t.Errorf("got %q, %v", data, err)
	}
}

func TestDecoder_Stream_SkipAcrossChunks(t *testing.T) {
	r := newChunkReader("5:hello,\n", "\n  ", "5:wo", "rld,\n")
	got := decodeAll(t, NewDecoder(r, Lenient()))
	if strings.Join(got, "|") != "hello|world" {
		t.Errorf("got %q", got)
	}
}
