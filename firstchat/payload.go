package firstchat

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/RomanSlack/FirstChat-BackEnd/carousel"
	"github.com/RomanSlack/FirstChat-BackEnd/config"
	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// BuildRequest turns a scraped record into a generation request. Image one is
// always the primary photo; image two is picked from the remaining successful
// downloads, seeded by cfg.SecondarySeed (zero seeds from the clock). With a
// single image the primary stands in for both slots.
func BuildRequest(rec models.ProfileRecord, cfg config.MessageConfig) (GenerateRequest, error) {
	primary, others := splitDownloads(rec.Downloads)
	if primary == "" {
		return GenerateRequest{}, models.NewScrapeError(models.ErrCodeMessageGen,
			"no downloaded primary photo to attach", nil)
	}

	secondary := primary
	if len(others) > 0 {
		seed := cfg.SecondarySeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		secondary = others[rand.New(rand.NewSource(seed)).Intn(len(others))]
	}

	image1, err := encodeImageFile(primary)
	if err != nil {
		return GenerateRequest{}, err
	}
	image2, err := encodeImageFile(secondary)
	if err != nil {
		return GenerateRequest{}, err
	}

	return GenerateRequest{
		Image1:        image1,
		Image2:        image2,
		UserBio:       cfg.UserBio,
		MatchBio:      matchBio(rec),
		SentenceCount: cfg.SentenceCount,
		Tone:          strings.ToLower(cfg.Tone),
		Creativity:    cfg.Creativity,
	}, nil
}

// splitDownloads returns the primary photo's local path and the paths of the
// other successful downloads, in record order.
func splitDownloads(downloads []models.DownloadResult) (primary string, others []string) {
	for _, d := range downloads {
		if !d.Succeeded {
			continue
		}
		if d.LabeledURL.Label == carousel.PrimaryLabel {
			primary = d.LocalPath
			continue
		}
		others = append(others, d.LocalPath)
	}
	return primary, others
}

// matchBio flattens the record's identity into the API shape. Titled sections
// are folded into the bio text, one "Title: body" line each, in a stable
// order.
func matchBio(rec models.ProfileRecord) MatchBio {
	bio := rec.Bio
	if len(rec.BioSections) > 0 {
		titles := make([]string, 0, len(rec.BioSections))
		for t := range rec.BioSections {
			titles = append(titles, t)
		}
		sort.Strings(titles)

		var lines []string
		if bio != "" {
			lines = append(lines, bio)
		}
		for _, t := range titles {
			lines = append(lines, fmt.Sprintf("%s: %v", t, rec.BioSections[t]))
		}
		bio = strings.Join(lines, "\n")
	}

	interests := rec.Interests
	if interests == nil {
		interests = []string{}
	}
	return MatchBio{
		Name:      rec.Name,
		Age:       rec.Age,
		Bio:       bio,
		Interests: interests,
	}
}

// encodeImageFile reads a downloaded image and wraps it in the data URI form
// the API accepts.
func encodeImageFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeMessageGen,
			fmt.Sprintf("failed to read image %s", path), err)
	}
	return "data:image;base64," + base64.StdEncoding.EncodeToString(data), nil
}
