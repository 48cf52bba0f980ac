package mergetree

import "encoding/binary"

// sipHash13 implements SipHash-1-3 (one compression round per input
// block, three finalization rounds) over key (k0, k1). This is the
// digest parallel-replica sharding is pinned to; xxhash (listed in
// go.mod but imported by no package) is a different algorithm
// entirely, so this is hand-rolled directly from the published SipHash
// round spec rather than silently substituted.
func sipHash13(data []byte, k0, k1 uint64) uint64 {
	v0 := k0 ^ 0x736f6d6570736575
	v1 := k1 ^ 0x646f72616e646f6d
	v2 := k0 ^ 0x6c7967656e657261
	v3 := k1 ^ 0x7465646279746573

	round := func() {
		v0 += v1
		v1 = rotl(v1, 13)
		v1 ^= v0
		v0 = rotl(v0, 32)
		v2 += v3
		v3 = rotl(v3, 16)
		v3 ^= v2
		v0 += v3
		v3 = rotl(v3, 21)
		v3 ^= v0
		v2 += v1
		v1 = rotl(v1, 17)
		v1 ^= v2
		v2 = rotl(v2, 32)
	}

	n := len(data)
	end := n - n%8
	for i := 0; i < end; i += 8 {
		m := binary.LittleEndian.Uint64(data[i : i+8])
		v3 ^= m
		round() // c=1 compression round
		v0 ^= m
	}

	var last [8]byte
	copy(last[:], data[end:])
	last[7] = byte(n)
	m := binary.LittleEndian.Uint64(last[:])
	v3 ^= m
	round()
	v0 ^= m

	v2 ^= 0xff
	round() // d=3 finalization rounds
	round()
	round()

	return v0 ^ v1 ^ v2 ^ v3
}

func rotl(x uint64, b uint) uint64 { return (x << b) | (x >> (64 - b)) }

// ShardKeys is the fixed key pair used for the parallel-replica
// sharding digest; arbitrary but stable across a cluster so every
// replica computes the same shard for the same row.
var ShardKeys = [2]uint64{0x0102030405060708, 0x090a0b0c0d0e0f10}

// ShardDigest returns the SipHash-1-3 digest of a row's sharding-key
// bytes (typically the serialized primary key, or an explicit
// `sharding_key` expression's bytes).
func ShardDigest(keyBytes []byte) uint64 {
	return sipHash13(keyBytes, ShardKeys[0], ShardKeys[1])
}

// ShardIndex maps a digest to one of numShards replicas by the
// standard modulo-reduction used for parallel-replica assignment.
func ShardIndex(digest uint64, numShards int) int {
	if numShards <= 1 {
		return 0
	}
	return int(digest % uint64(numShards))
}
