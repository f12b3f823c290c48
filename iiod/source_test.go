package iiod

import (
	"context"
	"testing"
)

func TestSourceChannelsFromContext(t *testing.T) {
	addr, serverErr := startMockServer(t, []mockOp{
		{cmd: "PRINT", status: len(testContextXML), payload: []byte(testContextXML)},
	})

	src := NewSource(addr, "icm20602")
	defer src.Close()

	raws, err := src.Channels(context.Background())
	if err != nil {
		t.Fatalf("channels failed: %v", err)
	}
	// temp has no scan element and must not appear.
	if len(raws) != 3 {
		t.Fatalf("expected 3 scan channels, got %d", len(raws))
	}
	if raws[0].Name != "accel_x" || raws[0].Index != "0" || raws[0].Type != "le:s16/16>>0" {
		t.Fatalf("accel_x descriptor wrong: %+v", raws[0])
	}
	if raws[0].Scale != "0.000598" {
		t.Fatalf("inline scale value not used: %+v", raws[0])
	}
	if raws[2].Name != "timestamp" || raws[2].Scale != "" {
		t.Fatalf("timestamp descriptor wrong: %+v", raws[2])
	}

	if err := <-serverErr; err != nil {
		t.Fatalf("server error: %v", err)
	}
}

func TestSourceNextStreamsRecords(t *testing.T) {
	record := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	addr, serverErr := startMockServer(t, []mockOp{
		{cmd: "PRINT", status: len(testContextXML), payload: []byte(testContextXML)},
		{cmd: "OPEN iio:device0 1 ffffffff", status: 0},
		{cmd: "READBUF iio:device0 8", status: len(record), payload: record},
		{cmd: "READBUF iio:device0 8", status: len(record), payload: record},
	})

	src := NewSource(addr, "icm20602")
	defer src.Close()

	buf := make([]byte, 8)
	for i := 0; i < 2; i++ {
		if err := src.Next(context.Background(), buf); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
		if buf[0] != 1 || buf[7] != 8 {
			t.Fatalf("record %d contents wrong: %v", i, buf)
		}
	}

	if err := <-serverErr; err != nil {
		t.Fatalf("server error: %v", err)
	}
}
