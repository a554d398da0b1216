package xcb

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Returned by "DecryptKey" for a wrong password or a corrupted file.
var ErrMacMismatch = errors.New("keystore MAC mismatch: wrong password or corrupted keystore")

const (
	keystoreVersion = 3
	keystoreCipher  = "aes-128-ctr"
	keystoreDklen   = 32
)

// Scrypt cost parameters for new keystores.
type ScryptParams struct {
	N int
	R int
	P int
}

var (
	// Default for "NewKeystore".
	StandardScrypt = ScryptParams{N: 1 << 13, R: 8, P: 1}

	// Cheap enough for tests and throwaway keys.
	LightScrypt = ScryptParams{N: 1 << 4, R: 8, P: 1}
)

// Encrypted JSON key file, version 3 of the Web3 secret storage format.
type keystoreJson struct {
	Address string             `json:"address"`
	Crypto  keystoreCryptoJson `json:"crypto"`
	Id      string             `json:"id"`
	Version int                `json:"version"`
}

type keystoreCryptoJson struct {
	Cipher       string `json:"cipher"`
	CipherText   string `json:"ciphertext"`
	CipherParams struct {
		Iv string `json:"iv"`
	} `json:"cipherparams"`
	Kdf       string            `json:"kdf"`
	KdfParams keystoreKdfParams `json:"kdfparams"`
	Mac       string            `json:"mac"`
}

// Union of the scrypt and pbkdf2 parameter sets.
type keystoreKdfParams struct {
	Dklen int    `json:"dklen"`
	N     int    `json:"n,omitempty"`
	P     int    `json:"p,omitempty"`
	R     int    `json:"r,omitempty"`
	C     int    `json:"c,omitempty"`
	Prf   string `json:"prf,omitempty"`
	Salt  string `json:"salt"`
}

/*
Encrypts the key with a scrypt-derived key and AES-128-CTR. The file records the
key's address on the given network.
*/
func EncryptKey(key *PrivateKey, password string, network Network, params ScryptParams, rand io.Reader) ([]byte, error) {
	salt := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	_, err := io.ReadFull(rand, salt)
	if err == nil {
		_, err = io.ReadFull(rand, iv)
	}
	if err != nil {
		return nil, errors.Wrap(err, `failed to read keystore randomness`)
	}

	derived, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, keystoreDklen)
	if err != nil {
		return nil, errors.Wrap(err, `failed to derive a keystore key`)
	}

	seed := key.Bytes()
	defer wipe(seed)
	cipherText, err := aesCtr(derived[:16], iv, seed)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewRandomFromReader(rand)
	if err != nil {
		return nil, errors.Wrap(err, `failed to generate a keystore id`)
	}

	var out keystoreJson
	out.Address = PubkeyToAddress(key.Public(), network).String()
	out.Id = id.String()
	out.Version = keystoreVersion
	out.Crypto.Cipher = keystoreCipher
	out.Crypto.CipherText = hex.EncodeToString(cipherText)
	out.Crypto.CipherParams.Iv = hex.EncodeToString(iv)
	out.Crypto.Kdf = "scrypt"
	out.Crypto.KdfParams = keystoreKdfParams{
		Dklen: keystoreDklen,
		N:     params.N,
		R:     params.R,
		P:     params.P,
		Salt:  hex.EncodeToString(salt),
	}
	mac := Sha3(derived[16:32], cipherText)
	out.Crypto.Mac = hex.EncodeToString(mac[:])

	return json.MarshalIndent(out, "", "  ")
}

/*
Decrypts a keystore file. Supports the scrypt and pbkdf2 (hmac-sha256) KDFs.
The MAC is SHA3-256 over the second half of the derived key and the ciphertext.
*/
func DecryptKey(input []byte, password string) (*PrivateKey, error) {
	var file keystoreJson
	err := json.Unmarshal(input, &file)
	if err != nil {
		return nil, encodingErr("keystore", err)
	}
	if file.Version != keystoreVersion {
		return nil, errors.Errorf("unsupported keystore version %d", file.Version)
	}
	if file.Crypto.Cipher != keystoreCipher {
		return nil, errors.Errorf("unsupported keystore cipher %q", file.Crypto.Cipher)
	}

	derived, err := file.Crypto.deriveKey(password)
	if err != nil {
		return nil, err
	}
	if len(derived) < 32 {
		return nil, errors.Errorf("keystore derived key has %d bytes, want at least 32", len(derived))
	}

	cipherText, err := hex.DecodeString(file.Crypto.CipherText)
	if err != nil {
		return nil, encodingErr("keystore ciphertext", err)
	}
	mac, err := hex.DecodeString(file.Crypto.Mac)
	if err != nil {
		return nil, encodingErr("keystore mac", err)
	}
	iv, err := hex.DecodeString(file.Crypto.CipherParams.Iv)
	if err != nil {
		return nil, encodingErr("keystore iv", err)
	}

	expected := Sha3(derived[16:32], cipherText)
	if subtle.ConstantTimeCompare(expected[:], mac) != 1 {
		return nil, errors.WithStack(ErrMacMismatch)
	}

	seed, err := aesCtr(derived[:16], iv, cipherText)
	if err != nil {
		return nil, err
	}
	defer wipe(seed)
	return PrivateKeyFromBytes(seed)
}

func (self keystoreCryptoJson) deriveKey(password string) ([]byte, error) {
	params := self.KdfParams
	salt, err := hex.DecodeString(params.Salt)
	if err != nil {
		return nil, encodingErr("keystore salt", err)
	}

	switch self.Kdf {
	case "scrypt":
		out, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, params.Dklen)
		return out, errors.Wrap(err, `failed to derive a keystore key`)
	case "pbkdf2":
		if params.Prf != "hmac-sha256" {
			return nil, errors.Errorf("unsupported pbkdf2 prf %q", params.Prf)
		}
		return pbkdf2.Key([]byte(password), salt, params.C, params.Dklen, sha256.New), nil
	}
	return nil, errors.Errorf("unsupported keystore kdf %q", self.Kdf)
}

func aesCtr(key, iv, input []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(iv) != aes.BlockSize {
		return nil, errors.Errorf("keystore iv has %d bytes, want %d", len(iv), aes.BlockSize)
	}
	out := make([]byte, len(input))
	cipher.NewCTR(block, iv).XORKeyStream(out, input)
	return out, nil
}

/*
Generates a key, encrypts it into "dir" under a file named by its UUID, and
returns the key and the file path.
*/
func NewKeystore(dir string, rand io.Reader, password string, network Network) (*PrivateKey, string, error) {
	key, err := GenerateKey(rand)
	if err != nil {
		return nil, "", err
	}
	path, err := WriteKeystore(dir, key, password, network, StandardScrypt, rand)
	if err != nil {
		return nil, "", err
	}
	return key, path, nil
}

// Encrypts an existing key into "dir". Returns the file path.
func WriteKeystore(dir string, key *PrivateKey, password string, network Network, params ScryptParams, rand io.Reader) (string, error) {
	data, err := EncryptKey(key, password, network, params, rand)
	if err != nil {
		return "", err
	}

	var file struct{ Id string }
	err = json.Unmarshal(data, &file)
	if err != nil {
		return "", errors.WithStack(err)
	}

	err = os.MkdirAll(dir, 0o700)
	if err != nil {
		return "", errors.Wrapf(err, `failed to create keystore directory %q`, dir)
	}
	path := filepath.Join(dir, file.Id)
	err = os.WriteFile(path, data, 0o600)
	return path, errors.Wrapf(err, `failed to write keystore %q`, path)
}

// Reads and decrypts a keystore file into a wallet for the given network.
func WalletFromKeystore(path string, password string, networkID uint64) (Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Wallet{}, errors.Wrapf(err, `failed to read keystore %q`, path)
	}
	key, err := DecryptKey(data, password)
	if err != nil {
		return Wallet{}, err
	}
	return NewWallet(key, networkID), nil
}
