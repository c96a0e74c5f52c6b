package signal

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sentence wraps body with the leading $ and its checksum.
func sentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, cs)
}

func TestParseReadings(t *testing.T) {
	r, err := ParseReadings(sentence("HPTRQ,r_knee,12.5,r_hip,-3.25") + "\r\n")
	require.NoError(t, err)
	assert.Equal(t, TypeTorque, r.Type)
	assert.Equal(t, []string{"r_knee", "r_hip"}, r.Names)
	assert.Equal(t, []float64{12.5, -3.25}, r.Values)

	_, err = ParseReadings(sentence("HPCUR,r_knee"))
	assert.Error(t, err, "odd field count")

	_, err = ParseReadings(sentence("HPVEL,r_knee,fast"))
	assert.Error(t, err, "non numeric value")

	_, err = ParseReadings("$HPTRQ,r_knee,1*00")
	assert.Error(t, err, "bad checksum")
}

func TestSerialBoardHandleLine(t *testing.T) {
	r, w := io.Pipe()
	b := NewSerialBoard(r, TypeCurrent, []string{"a", "b"}, []string{"a"}, 0)
	defer func() {
		w.Close()
		<-b.Done()
	}()

	buf := make([]float64, 2)
	require.NoError(t, b.HandleLine(sentence("HPTRQ,a,1,b,2")))
	assert.False(t, b.Values(buf), "torque sentences are ignored in current mode")

	require.NoError(t, b.HandleLine(sentence("HPCUR,a,0.5,b,0.75")))
	require.True(t, b.Values(buf))
	assert.Equal(t, []float64{0.5, 0.75}, buf)

	vel := make([]float64, 1)
	assert.False(t, b.Velocities(vel))
	require.NoError(t, b.HandleLine(sentence("HPVEL,a,-20")))
	require.True(t, b.Velocities(vel))
	assert.Equal(t, -20.0, vel[0])
}

func TestSerialBoardReadLoop(t *testing.T) {
	r, w := io.Pipe()
	b := NewSerialBoard(r, TypeTorque, []string{"knee"}, nil, 0)

	go func() {
		fmt.Fprintf(w, "garbage\r\n\r\n")
		fmt.Fprintf(w, "%s\r\n", sentence("HPTRQ,knee,4"))
		w.Close()
	}()

	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop at EOF")
	}
	assert.ErrorIs(t, b.Err(), io.EOF)

	buf := make([]float64, 1)
	require.True(t, b.Values(buf))
	assert.Equal(t, 4.0, buf[0])
}

func TestSerialBoardClose(t *testing.T) {
	r, _ := io.Pipe()
	b := NewSerialBoard(r, TypeTorque, nil, nil, 0)
	require.NoError(t, b.Close())
	assert.Error(t, b.Err())
}
