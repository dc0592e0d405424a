package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/fosdem/rawpress/lib/audio"
	"github.com/fosdem/rawpress/lib/encdec"
	"github.com/fosdem/rawpress/lib/keyframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func testFrame(w, h int, seed byte) *encdec.Frame {
	planes := [3]*encdec.Plane{}
	for p := range planes {
		data := make([]byte, w*h)
		for i := range data {
			data[i] = seed + byte(i*(p+1))
		}
		planes[p] = &encdec.Plane{Width: w, Height: h, Data: data}
	}
	return encdec.AssembleFrame(w, h, planes[0], planes[1], planes[2])
}

// closeRecorder is a sink that remembers whether it was closed.
type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

type CodecSuite struct {
	suite.Suite
	params Params
	frames []*encdec.Frame
	modes  []keyframe.Mode
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) SetupTest() {
	s.params = Params{Width: 5, Height: 3, Framerate: 30, Quality: 5, Threads: 2}
	s.frames = nil
	s.modes = nil
	sched, err := keyframe.New(3)
	s.Require().NoError(err)
	for i := 0; i < 7; i++ {
		s.frames = append(s.frames, testFrame(5, 3, byte(i*7)))
		s.modes = append(s.modes, sched.Next())
	}
}

func (s *CodecSuite) readAll(r io.Reader) (*Reader, []*Unit) {
	rd, err := NewReader(r)
	s.Require().NoError(err)
	var units []*Unit
	for {
		u, err := rd.Next()
		if err == io.EOF {
			break
		}
		s.Require().NoError(err)
		units = append(units, u)
	}
	return rd, units
}

func (s *CodecSuite) assertUnits(units []*Unit) {
	s.Require().Len(units, len(s.frames))
	for i, u := range units {
		s.Equal(s.modes[i], u.Mode, "unit %d", i)
		s.Equal(s.frames[i].Y.Data, u.Frame.Y.Data, "unit %d Y", i)
		s.Equal(s.frames[i].U.Data, u.Frame.U.Data, "unit %d U", i)
		s.Equal(s.frames[i].V.Data, u.Frame.V.Data, "unit %d V", i)
	}
}

func (s *CodecSuite) TestStreamRoundTrip() {
	sink := &closeRecorder{}
	enc, err := NewStreamEncoder(sink, s.params)
	s.Require().NoError(err)

	for i, f := range s.frames {
		s.Require().NoError(enc.Submit(f, s.modes[i]))
	}
	s.Equal(len(s.frames), enc.Frames())
	s.Require().NoError(enc.Finish())
	s.True(sink.closed)

	rd, units := s.readAll(bytes.NewReader(sink.Bytes()))
	defer rd.Close()
	s.False(rd.Buffered())
	s.Equal(5, rd.Params().Width)
	s.Equal(3, rd.Params().Height)
	s.Equal(30, rd.Params().Framerate)
	s.Equal(5, rd.Params().Quality)
	s.Nil(rd.Audio())
	s.assertUnits(units)

	s.ErrorIs(enc.Submit(s.frames[0], keyframe.Independent), ErrFinished)
	s.ErrorIs(enc.Finish(), ErrFinished)
}

func (s *CodecSuite) TestBufferedRoundTripWithAudio() {
	enc, err := NewBufferedEncoder(s.params)
	s.Require().NoError(err)

	for i, f := range s.frames {
		s.Require().NoError(enc.Submit(f, s.modes[i]))
	}
	pcm := &audio.Buffer{SampleRate: 48000, Channels: 2, Samples: []int16{0, -1, 32767, -32768, 5, 6}}
	s.Require().NoError(enc.AppendAudio(pcm))
	s.ErrorIs(enc.AppendAudio(pcm), ErrAudioAlreadySet)

	var out bytes.Buffer
	n, err := enc.WriteTo(&out)
	s.Require().NoError(err)
	s.Equal(int64(out.Len()), n)

	rd, units := s.readAll(&out)
	defer rd.Close()
	s.True(rd.Buffered())
	s.assertUnits(units)
	s.Require().NotNil(rd.Audio())
	s.Equal(pcm, rd.Audio())

	_, err = enc.WriteTo(&out)
	s.ErrorIs(err, ErrFinished)
}

func (s *CodecSuite) TestBufferedWithoutAudio() {
	enc, err := NewBufferedEncoder(s.params)
	s.Require().NoError(err)
	s.Require().NoError(enc.Submit(s.frames[0], keyframe.Independent))

	var out bytes.Buffer
	_, err = enc.WriteTo(&out)
	s.Require().NoError(err)

	rd, units := s.readAll(&out)
	defer rd.Close()
	s.Len(units, 1)
	s.Nil(rd.Audio())
}

func (s *CodecSuite) TestPredictedNeedsReference() {
	enc, err := NewBufferedEncoder(s.params)
	s.Require().NoError(err)
	defer enc.Discard()

	s.ErrorIs(enc.Submit(s.frames[0], keyframe.Predicted), ErrNoReference)
}

func (s *CodecSuite) TestRejectsWrongFrameSize() {
	enc, err := NewBufferedEncoder(s.params)
	s.Require().NoError(err)
	defer enc.Discard()

	s.Error(enc.Submit(testFrame(4, 3, 0), keyframe.Independent))
}

func (s *CodecSuite) TestAbortKeepsWrittenUnits() {
	var sink bytes.Buffer
	enc, err := NewStreamEncoder(&sink, s.params)
	s.Require().NoError(err)
	s.Require().NoError(enc.Submit(s.frames[0], keyframe.Independent))
	s.Require().NoError(enc.Abort())

	rd, err := NewReader(&sink)
	s.Require().NoError(err)
	defer rd.Close()
	u, err := rd.Next()
	s.Require().NoError(err)
	s.Equal(keyframe.Independent, u.Mode)

	_, err = rd.Next()
	s.ErrorIs(err, io.ErrUnexpectedEOF)
}

func TestInvalidParams(t *testing.T) {
	_, err := NewBufferedEncoder(Params{Width: 0, Height: 2, Framerate: 1})
	assert.Error(t, err)
	_, err = NewStreamEncoder(io.Discard, Params{Width: 2, Height: 2, Framerate: 0})
	assert.Error(t, err)
}

func TestQualityLevels(t *testing.T) {
	for q := 0; q <= 10; q++ {
		enc, err := NewBufferedEncoder(Params{Width: 2, Height: 2, Framerate: 1, Quality: q, Threads: 0})
		require.NoError(t, err, "quality %d", q)
		require.NoError(t, enc.Submit(testFrame(2, 2, 1), keyframe.Independent))
		require.NoError(t, enc.Discard())
	}
}

func TestReaderRejectsGarbage(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("nope, not a file at all")))
	assert.Error(t, err)

	_, err = NewReader(bytes.NewReader([]byte("RPV1")))
	assert.Error(t, err)
}
