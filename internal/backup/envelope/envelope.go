// Package envelope wraps a packaged backup archive in password-based
// encryption and detects whether a payload is wrapped.
//
// Layout:
//
//	magic "LBX1" | version | argon2id time(u32) memoryKiB(u32) threads(u8)
//	| salt(16) | nonce prefix(12) | key check(16) | chunk size(u32)
//	then frames: final flag(u8) | length(u32) | AES-256-GCM ciphertext
//
// The whole header is bound into every frame as additional data, and each
// frame's nonce carries its index, so frames cannot be reordered, dropped or
// truncated without failing authentication.
package envelope

import (
	"bufio"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

const (
	magic        = "LBX1"
	version byte = 1

	saltLen      = 16
	noncePrefix  = 12
	keyCheckLen  = 16
	keyLen       = 32
	headerLen    = len(magic) + 1 + 4 + 4 + 1 + saltLen + noncePrefix + keyCheckLen + 4
	frameHdrLen  = 1 + 4
	defaultChunk = 1 << 20

	maxMemoryKiB = 1 << 20
	maxTime      = 16
	maxChunk     = 16 << 20
)

var (
	// ErrWrongPassword means the envelope is intact but the password does
	// not derive its key.
	ErrWrongPassword = errors.New("wrong backup password")
	// ErrCorrupt means the payload is not a readable envelope, or it failed
	// authentication under the right key.
	ErrCorrupt = errors.New("backup envelope is corrupt")
	// ErrEmptyPassword rejects encryption or decryption without a password.
	ErrEmptyPassword = errors.New("backup password is empty")
)

// Params are the argon2id cost settings recorded in each envelope.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultParams are used for new envelopes.
var DefaultParams = Params{Time: 3, MemoryKiB: 64 * 1024, Threads: 2}

// zip local file header and end-of-central-directory (empty archive) signatures.
var (
	zipLocalHeader = []byte("PK\x03\x04")
	zipEmptyEOCD   = []byte("PK\x05\x06")
)

// IsEncrypted reports whether the payload read from r is not a plain zip
// archive. Anything without a zip signature, including a truncated or
// corrupt file, counts as encrypted; Decrypt tells those apart.
func IsEncrypted(r io.Reader) (bool, error) {
	lead := make([]byte, 4)
	n, err := io.ReadFull(r, lead)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read leading bytes: %w", err)
	}
	lead = lead[:n]
	return !bytes.Equal(lead, zipLocalHeader) && !bytes.Equal(lead, zipEmptyEOCD), nil
}

// IsEncryptedFile is IsEncrypted for a file on disk.
func IsEncryptedFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return IsEncrypted(f)
}

type header struct {
	params   Params
	salt     []byte
	nonce    []byte
	keyCheck []byte
	chunk    uint32
	raw      []byte
}

func (h *header) marshal() []byte {
	buf := make([]byte, 0, headerLen)
	buf = append(buf, magic...)
	buf = append(buf, version)
	buf = binary.BigEndian.AppendUint32(buf, h.params.Time)
	buf = binary.BigEndian.AppendUint32(buf, h.params.MemoryKiB)
	buf = append(buf, h.params.Threads)
	buf = append(buf, h.salt...)
	buf = append(buf, h.nonce...)
	buf = append(buf, h.keyCheck...)
	buf = binary.BigEndian.AppendUint32(buf, h.chunk)
	return buf
}

func readHeader(r io.Reader) (*header, error) {
	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if string(raw[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: unrecognized format", ErrCorrupt)
	}
	if raw[4] != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, raw[4])
	}
	p := raw[5:]
	h := &header{
		params: Params{
			Time:      binary.BigEndian.Uint32(p[0:4]),
			MemoryKiB: binary.BigEndian.Uint32(p[4:8]),
			Threads:   p[8],
		},
		raw: raw,
	}
	p = p[9:]
	h.salt, p = p[:saltLen], p[saltLen:]
	h.nonce, p = p[:noncePrefix], p[noncePrefix:]
	h.keyCheck, p = p[:keyCheckLen], p[keyCheckLen:]
	h.chunk = binary.BigEndian.Uint32(p[:4])

	if h.params.Time == 0 || h.params.Time > maxTime || h.params.MemoryKiB == 0 ||
		h.params.MemoryKiB > maxMemoryKiB || h.params.Threads == 0 || h.chunk == 0 || h.chunk > maxChunk {
		return nil, fmt.Errorf("%w: header parameters out of range", ErrCorrupt)
	}
	return h, nil
}

// deriveKey returns the AES key and the key check value for password.
func deriveKey(password string, salt []byte, p Params) (key, check []byte) {
	out := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, keyLen+keyCheckLen)
	return out[:keyLen], out[keyLen:]
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func frameNonce(prefix []byte, index uint64) []byte {
	n := make([]byte, len(prefix))
	copy(n, prefix)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], index)
	for i := range ctr {
		n[len(n)-8+i] ^= ctr[i]
	}
	return n
}

func frameAAD(hdr []byte, final bool) []byte {
	aad := make([]byte, len(hdr)+1)
	copy(aad, hdr)
	if final {
		aad[len(hdr)] = 1
	}
	return aad
}

// Encrypt reads the archive from src and writes the envelope to dst.
func Encrypt(dst io.Writer, src io.Reader, password string) error {
	return encrypt(dst, src, password, DefaultParams, defaultChunk)
}

func encrypt(dst io.Writer, src io.Reader, password string, p Params, chunk int) error {
	if password == "" {
		return ErrEmptyPassword
	}
	h := &header{params: p, salt: make([]byte, saltLen), nonce: make([]byte, noncePrefix), chunk: uint32(chunk)}
	if _, err := rand.Read(h.salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	if _, err := rand.Read(h.nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	key, check := deriveKey(password, h.salt, p)
	h.keyCheck = check
	hdr := h.marshal()

	aead, err := newAEAD(key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	if _, err := dst.Write(hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	br := bufio.NewReaderSize(src, chunk)
	buf := make([]byte, chunk)
	var index uint64
	for {
		n, readErr := io.ReadFull(br, buf)
		if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read archive: %w", readErr)
		}
		final := readErr != nil
		if !final {
			if _, peekErr := br.Peek(1); errors.Is(peekErr, io.EOF) {
				final = true
			}
		}

		ct := aead.Seal(nil, frameNonce(h.nonce, index), buf[:n], frameAAD(hdr, final))
		frame := make([]byte, frameHdrLen, frameHdrLen+len(ct))
		if final {
			frame[0] = 1
		}
		binary.BigEndian.PutUint32(frame[1:], uint32(len(ct)))
		if _, err := dst.Write(append(frame, ct...)); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		if final {
			return nil
		}
		index++
	}
}

// Decrypt reads an envelope from src and writes the archive to dst. A wrong
// password fails with ErrWrongPassword before anything is written; any other
// failure wraps ErrCorrupt.
func Decrypt(dst io.Writer, src io.Reader, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	br := bufio.NewReader(src)
	h, err := readHeader(br)
	if err != nil {
		return err
	}

	key, check := deriveKey(password, h.salt, h.params)
	if subtle.ConstantTimeCompare(check, h.keyCheck) != 1 {
		return ErrWrongPassword
	}
	aead, err := newAEAD(key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}

	maxFrame := int(h.chunk) + aead.Overhead()
	frameHdr := make([]byte, frameHdrLen)
	var index uint64
	for {
		if _, err := io.ReadFull(br, frameHdr); err != nil {
			return fmt.Errorf("%w: truncated before final frame", ErrCorrupt)
		}
		final := frameHdr[0] == 1
		size := int(binary.BigEndian.Uint32(frameHdr[1:]))
		if frameHdr[0] > 1 || size < aead.Overhead() || size > maxFrame {
			return fmt.Errorf("%w: bad frame %d", ErrCorrupt, index)
		}
		ct := make([]byte, size)
		if _, err := io.ReadFull(br, ct); err != nil {
			return fmt.Errorf("%w: truncated frame %d", ErrCorrupt, index)
		}
		pt, err := aead.Open(nil, frameNonce(h.nonce, index), ct, frameAAD(h.raw, final))
		if err != nil {
			return fmt.Errorf("%w: frame %d failed authentication", ErrCorrupt, index)
		}
		if _, err := dst.Write(pt); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
		if final {
			if _, err := br.Peek(1); !errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: trailing data after final frame", ErrCorrupt)
			}
			return nil
		}
		index++
	}
}

// EncryptFile encrypts the archive at src into a new file at dst.
func EncryptFile(src, dst, password string) error {
	return withFiles(src, dst, func(w io.Writer, r io.Reader) error {
		return Encrypt(w, r, password)
	})
}

// DecryptFile decrypts the envelope at src into a new file at dst. dst does
// not exist after a failure.
func DecryptFile(src, dst, password string) error {
	return withFiles(src, dst, func(w io.Writer, r io.Reader) error {
		return Decrypt(w, r, password)
	})
}

func withFiles(src, dst string, fn func(io.Writer, io.Reader) error) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	bw := bufio.NewWriter(out)
	if err := fn(bw, in); err != nil {
		return err
	}
	return bw.Flush()
}
