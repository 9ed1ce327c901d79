package rdfvalue

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// HashAlgo identifies one of the digest algorithms an AFF4 container
// can name, grounded on pyaff4's hashes.py dispatch table (HASH_MD5,
// HASH_SHA1, HASH_SHA256, HASH_SHA512, HASH_BLAKE2B and the
// block-map-specific HASH_BLOCKMAPHASH_SHA512).
type HashAlgo int

const (
	MD5 HashAlgo = iota
	SHA1
	SHA256
	SHA512
	Blake2b
	BlockMapHashSHA512
)

type algoInfo struct {
	short  string // short name / lexicon fragment, e.g. "sha256"
	length int
	new    func() hash.Hash
}

var algoTable = map[HashAlgo]algoInfo{
	MD5:                {"md5", md5.Size, md5.New},
	SHA1:                {"sha1", sha1.Size, sha1.New},
	SHA256:              {"sha256", sha256.Size, sha256.New},
	SHA512:              {"sha512", sha512.Size, sha512.New},
	Blake2b:             {"blake2b", 64, newBlake2b},
	BlockMapHashSHA512:  {"blockMapHashSHA512", sha512.Size, sha512.New},
}

func newBlake2b() hash.Hash {
	h, err := blake2b.New512(nil)
	if err != nil {
		// blake2b.New512 only fails given a non-empty key.
		panic(err)
	}
	return h
}

// New returns a fresh running hasher for a.
func (a HashAlgo) New() hash.Hash {
	info, ok := algoTable[a]
	if !ok {
		panic("rdfvalue: unknown hash algorithm")
	}
	return info.new()
}

// Length returns the digest length in bytes for a.
func (a HashAlgo) Length() int {
	return algoTable[a].length
}

// ShortName returns the algorithm's lexicon fragment, e.g. "sha256".
func (a HashAlgo) ShortName() string {
	return algoTable[a].short
}

// AlgoFromShortName is the inverse of ShortName, used when parsing a
// hash predicate URN out of a container's Turtle metadata.
func AlgoFromShortName(name string) (HashAlgo, error) {
	name = strings.ToLower(name)
	for a, info := range algoTable {
		if strings.EqualFold(info.short, name) {
			return a, nil
		}
	}
	return 0, errors.Errorf("rdfvalue: unrecognized hash algorithm %q", name)
}

// Hash is a typed literal carrying a digest value tagged with the
// algorithm that produced it, e.g. aff4:sha256/<hex>.
type Hash struct {
	Algo   HashAlgo
	Digest []byte
}

// NewHash wraps a raw digest with its algorithm.
func NewHash(algo HashAlgo, digest []byte) Hash {
	return Hash{Algo: algo, Digest: append([]byte(nil), digest...)}
}

// Hex returns the digest's lowercase hex encoding.
func (h Hash) Hex() string {
	return hex.EncodeToString(h.Digest)
}

// Equal reports whether h and other name the same algorithm and
// digest bytes.
func (h Hash) Equal(other Hash) bool {
	return h.Algo == other.Algo && string(h.Digest) == string(other.Digest)
}

// AlgoPrecedence orders algorithms the way a block-map hash folds its
// per-block hashes together when more than one algorithm is present in
// a container: the fixed precedence MD5 < SHA1 < SHA256 < SHA512 <
// Blake2b, which is the declaration order of the HashAlgo constants.
func AlgoPrecedence(algos []HashAlgo) []HashAlgo {
	out := append([]HashAlgo(nil), algos...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
