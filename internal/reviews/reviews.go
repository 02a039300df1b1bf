// Package reviews synthesizes user reviews for POIs and composes the
// document text that gets embedded and indexed.
package reviews

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/mwidera/cityguide/internal/models"
)

// reviewTemplates holds review text templates per category. The {cuisine}
// placeholder is substituted for restaurants that declare one.
var reviewTemplates = map[string][]string{
	models.CategoryRestaurant: {
		"Great {cuisine} food, friendly staff and reasonable prices.",
		"The {cuisine} dishes were delicious. Will definitely come back.",
		"Nice atmosphere, though service was a bit slow on a busy evening.",
		"Solid {cuisine} cooking. Portions could be bigger.",
		"One of the better places to eat in the city center.",
	},
	models.CategoryCafe: {
		"Lovely coffee and homemade cakes. Cozy interior.",
		"Good spot to work with a laptop, decent wifi.",
		"A bit crowded on weekends but the pastries are worth it.",
		"Friendly baristas and excellent espresso.",
	},
	models.CategoryMuseum: {
		"Fascinating exhibits, well worth the entrance fee.",
		"Smaller than expected but the collection is interesting.",
		"Great for a rainy afternoon. Captions also in English.",
		"The guided tour really brought the history to life.",
	},
	models.CategoryHotel: {
		"Clean rooms and helpful reception. Good location.",
		"Breakfast was decent, room was quiet despite the main street.",
		"Fair value for the price. Parking can be tricky.",
		"Comfortable beds and a short walk to the center.",
	},
	models.CategoryReligiousSite: {
		"A deeply moving place. The architecture is stunning.",
		"Very crowded during pilgrimages, go early in the morning.",
		"Beautiful interior and peaceful atmosphere.",
		"A must-see when visiting the city.",
	},
	models.CategoryPark: {
		"Pleasant walking paths and plenty of shade in summer.",
		"Great playground for kids and clean alleys.",
		"Nice green escape from the city noise.",
	},
	models.CategoryBar: {
		"Good selection of local beers and a lively crowd.",
		"Prices are fair and the music is not too loud.",
		"Fun place for an evening out with friends.",
	},
}

// defaultTemplates is used when a category has no dedicated set.
var defaultTemplates = []string{
	"Worth a visit when you are in the area.",
	"Interesting place, friendly people.",
	"Nothing spectacular but pleasant overall.",
	"Would recommend to anyone visiting the city.",
}

// Synthesizer generates deterministic synthetic reviews from a seed.
type Synthesizer struct {
	rng *rand.Rand
}

// NewSynthesizer creates a Synthesizer. The same seed over the same POI
// slice order produces identical reviews.
func NewSynthesizer(seed int64) *Synthesizer {
	return &Synthesizer{rng: rand.New(rand.NewSource(seed))}
}

// Enrich attaches synthetic reviews, an average rating, and the composed
// document text to each POI, in place.
func (s *Synthesizer) Enrich(pois []*models.POI) {
	for _, poi := range pois {
		poi.ReviewData = s.generate(poi)
		poi.Rating = poi.ReviewData.AverageRating
		poi.DocumentText = CreateDocumentText(poi)
	}
}

func (s *Synthesizer) generate(poi *models.POI) *models.ReviewData {
	templates, ok := reviewTemplates[poi.Category]
	if !ok {
		templates = defaultTemplates
	}

	count := 2 + s.rng.Intn(4) // 2..5 reviews
	reviews := make([]models.Review, 0, count)
	var total int
	for i := 0; i < count; i++ {
		text := templates[s.rng.Intn(len(templates))]
		cuisine := poi.Cuisine
		if cuisine == "" {
			cuisine = "local"
		}
		text = strings.ReplaceAll(text, "{cuisine}", cuisine)

		rating := 3 + s.rng.Intn(3) // 3..5 stars
		daysAgo := s.rng.Intn(730)
		date := time.Now().AddDate(0, 0, -daysAgo).Format("2006-01-02")

		reviews = append(reviews, models.Review{Rating: rating, Text: text, Date: date})
		total += rating
	}

	avg := math.Round(float64(total)/float64(count)*10) / 10
	return &models.ReviewData{
		Reviews:       reviews,
		AverageRating: avg,
		TotalReviews:  count,
	}
}

// CreateDocumentText composes the retrievable text for a POI from its fields
// and reviews. This is the text embedded into the vector index.
func CreateDocumentText(poi *models.POI) string {
	var sb strings.Builder

	sb.WriteString(poi.Name)
	if poi.NameEN != "" && poi.NameEN != poi.Name {
		fmt.Fprintf(&sb, " (%s)", poi.NameEN)
	}
	fmt.Fprintf(&sb, ". Category: %s.", strings.ReplaceAll(poi.Category, "_", " "))
	if poi.Cuisine != "" {
		fmt.Fprintf(&sb, " Cuisine: %s.", poi.Cuisine)
	}
	if addr := poi.Address.String(); addr != "" {
		fmt.Fprintf(&sb, " Located at %s.", addr)
	}
	if poi.OpeningHours != "" {
		fmt.Fprintf(&sb, " Opening hours: %s.", poi.OpeningHours)
	}
	if poi.Description != "" {
		fmt.Fprintf(&sb, " %s", strings.TrimSpace(poi.Description))
		if !strings.HasSuffix(poi.Description, ".") {
			sb.WriteString(".")
		}
	}
	if rd := poi.ReviewData; rd != nil && rd.TotalReviews > 0 {
		fmt.Fprintf(&sb, " Rated %.1f out of 5 based on %d reviews.", rd.AverageRating, rd.TotalReviews)
		for i, r := range rd.Reviews {
			if i >= 2 {
				break
			}
			fmt.Fprintf(&sb, " Visitor review: %s", r.Text)
		}
	}
	return sb.String()
}
