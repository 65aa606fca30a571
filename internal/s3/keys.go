package s3

import (
	"path"
	"strings"
	"time"
)

const (
	ManifestsPrefix = "manifests"
	LatestPrefix    = "latest"
	LocksPrefix     = "locks"
)

// DateStampLayout is the YYYYMMDD stamp used in input prefixes and output keys.
const DateStampLayout = "20060102"

func DateStamp(t time.Time) string {
	return t.Format(DateStampLayout)
}

func ParseDateStamp(s string) (time.Time, bool) {
	if len(s) != len(DateStampLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateStampLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// InputPrefix is the listing prefix for one day of shard files, e.g.
// kinesis-output/20211212. base is used verbatim.
func InputPrefix(base string, day time.Time) string {
	return base + DateStamp(day)
}

// OutputKey is the joined object key, e.g. lambda-output/20211213.csv.
func OutputKey(base string, day time.Time, ext string) string {
	return base + DateStamp(day) + ext
}

func ManifestKey(job, dateStamp string) string {
	return path.Join(ManifestsPrefix, job, dateStamp+".json")
}

func LatestKey(job string) string {
	return path.Join(LatestPrefix, job+".json")
}

func LockKey(job string) string {
	return path.Join(LocksPrefix, job+".lock")
}

func ManifestsPrefixForJob(job string) string {
	return path.Join(ManifestsPrefix, job) + "/"
}

// ParseManifestKey returns the job and date stamp of a manifest key.
func ParseManifestKey(key string) (job, dateStamp string, ok bool) {
	key = strings.Trim(key, "/")
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != ManifestsPrefix || !strings.HasSuffix(parts[2], ".json") {
		return "", "", false
	}
	dateStamp = strings.TrimSuffix(parts[2], ".json")
	if _, valid := ParseDateStamp(dateStamp); !valid {
		return "", "", false
	}
	return parts[1], dateStamp, true
}
