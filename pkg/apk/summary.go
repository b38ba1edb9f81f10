package apk

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/shogo82148/androidbinary/apk"
	"github.com/zeebo/blake3"
)

// ArchiveSummary holds file level facts about an archive that do not come
// from the manifest model.
type ArchiveSummary struct {
	Size   int64             `json:"size"`
	Hashes map[string]string `json:"hashes"`
	Label  string            `json:"label,omitempty"`
	ABIs   []string          `json:"abis,omitempty"`
}

// Summarize hashes the archive at path, resolves its display label and lists
// its native ABIs. A label that cannot be resolved is left empty.
func Summarize(path string) (*ArchiveSummary, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	hashes, err := HashFile(path)
	if err != nil {
		return nil, err
	}
	s := &ArchiveSummary{Size: fi.Size(), Hashes: hashes}
	if !IsContainer(path) {
		s.Label, _ = ResolveLabel(path)
		s.ABIs = nativeABIs(path)
	}
	return s, nil
}

// HashFile computes the md5, sha1, sha256 and blake3 digests of a file in
// one pass.
func HashFile(filePath string) (map[string]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	md5Hash := md5.New()
	sha1Hash := sha1.New()
	sha256Hash := sha256.New()
	blake3Hash := blake3.New()

	multiWriter := io.MultiWriter(md5Hash, sha1Hash, sha256Hash, blake3Hash)
	if _, err := io.Copy(multiWriter, file); err != nil {
		return nil, err
	}

	return map[string]string{
		"md5":    hex.EncodeToString(md5Hash.Sum(nil)),
		"sha1":   hex.EncodeToString(sha1Hash.Sum(nil)),
		"sha256": hex.EncodeToString(sha256Hash.Sum(nil)),
		"blake3": hex.EncodeToString(blake3Hash.Sum(nil)),
	}, nil
}

// ResolveLabel returns the application label with string resources
// resolved against the archive's resource table.
func ResolveLabel(path string) (string, error) {
	pkg, err := apk.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer pkg.Close()

	label, err := pkg.Label(nil)
	if err != nil {
		return "", err
	}
	return label, nil
}

func nativeABIs(path string) []string {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil
	}
	defer reader.Close()

	seen := make(map[string]bool)
	for _, file := range reader.File {
		if strings.HasPrefix(file.Name, "lib/") {
			parts := strings.Split(file.Name, "/")
			if len(parts) >= 3 && parts[1] != "" {
				seen[parts[1]] = true
			}
		}
	}

	abis := make([]string, 0, len(seen))
	for abi := range seen {
		abis = append(abis, abi)
	}
	sort.Strings(abis)
	return abis
}
