package wal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordRoundTripPut(t *testing.T) {
	r := Record{Tid: 7, Op: OpPut, Key: []byte("k"), Value: []byte("value")}
	encoded := r.Encode()

	decoded, n, err := DecodeRecord(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.Equal(t, r, decoded)
}

func TestRecordRoundTripDelete(t *testing.T) {
	r := Record{Tid: 7, Op: OpDelete, Key: []byte("k")}
	decoded, n, err := DecodeRecord(r.Encode())
	require.NoError(t, err)
	require.Equal(t, n, len(r.Encode()))
	require.Equal(t, r.Tid, decoded.Tid)
	require.Equal(t, r.Key, decoded.Key)
	require.Nil(t, decoded.Value)
}

func TestRecordRoundTripControlOps(t *testing.T) {
	for _, op := range []byte{OpCreate, OpCommit, OpRollback} {
		r := Record{Tid: 42, Op: op}
		decoded, _, err := DecodeRecord(r.Encode())
		require.NoError(t, err)
		require.Equal(t, r.Tid, decoded.Tid)
		require.Equal(t, r.Op, decoded.Op)
	}
}

func TestDecodeRecordRejectsTruncatedData(t *testing.T) {
	r := Record{Tid: 1, Op: OpPut, Key: []byte("k"), Value: []byte("v")}
	encoded := r.Encode()
	_, _, err := DecodeRecord(encoded[:len(encoded)-1])
	require.Error(t, err)
}

func TestDecodeRecordRejectsUnknownOp(t *testing.T) {
	r := Record{Tid: 1, Op: OpCreate}
	encoded := r.Encode()
	encoded[10] = 99
	_, _, err := DecodeRecord(encoded)
	require.Error(t, err)
}

func TestMultipleRecordsDecodeSequentially(t *testing.T) {
	a := Record{Tid: 1, Op: OpCreate}
	b := Record{Tid: 1, Op: OpPut, Key: []byte("x"), Value: []byte("y")}
	buf := append(a.Encode(), b.Encode()...)

	first, n1, err := DecodeRecord(buf)
	require.NoError(t, err)
	require.Equal(t, OpCreate, first.Op)

	second, n2, err := DecodeRecord(buf[n1:])
	require.NoError(t, err)
	require.Equal(t, OpPut, second.Op)
	require.Equal(t, "x", string(second.Key))
	require.Equal(t, n1+n2, len(buf))
}
