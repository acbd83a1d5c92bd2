// Package advice maps canonical class labels to care suggestions.
package advice

import (
	"sort"

	"github.com/Brownie44l1/plant-doctor/internal/label"
)

// Fallback is returned for any label without an explicit entry.
const Fallback = "🩺 Consult an expert or botanist for more specific care instructions."

var suggestions = map[string]string{
	"apple___apple_scab":                                 "🍏 Remove fallen leaves; Apply fungicides early in the season.",
	"apple___black_rot":                                  "🛑 Prune infected branches; Use fungicide sprays regularly.",
	"apple___cedar_apple_rust":                           "🌿 Remove nearby cedar trees; Apply preventive fungicides.",
	"apple___healthy":                                    "👍 Keep monitoring for pests and diseases.",
	"blueberry___healthy":                                "👍 Maintain good soil moisture; Mulch to prevent weeds.",
	"cherry_(including_sour)___powdery_mildew":           "🧴 Apply sulfur-based fungicides; Improve air circulation.",
	"cherry_(including_sour)___healthy":                  "🌱 Regularly inspect trees for pests.",
	"corn_(maize)___cercospora_leaf_spot_gray_leaf_spot": "🚜 Use resistant hybrids; Apply fungicides if needed.",
	"corn_(maize)___common_rust_":                        "🛡️ Remove crop residues; Fungicide applications may help.",
	"corn_(maize)___northern_leaf_blight":                "🌾 Rotate crops; Use resistant varieties.",
	"corn_(maize)___healthy":                             "💧 Ensure proper irrigation; Monitor for signs of stress.",
	"grape___black_rot":                                  "🍇 Prune infected shoots; Fungicide sprays essential during wet weather.",
	"grape___esca_(black_measles)":                       "🪓 Remove and destroy affected wood; Maintain vine health.",
	"grape___leaf_blight_(isariopsis_leaf_spot)":         "🌿 Apply fungicides; Remove infected leaves.",
	"grape___healthy":                                    "👍 Maintain good vineyard hygiene.",
	"orange___haunglongbing_(citrus_greening)":           "🦟 Control psyllid vectors; Remove infected trees promptly.",
	"peach___bacterial_spot":                             "🌧️ Avoid overhead irrigation; Use copper-based sprays.",
	"peach___healthy":                                    "🌸 Proper fertilization and pest monitoring.",
	"pepper_bell___bacterial_spot":                       "🌿 Use disease-free seeds; Apply copper sprays.",
	"pepper_bell___healthy":                              "🛡️ Keep plants well-watered; Monitor for pests.",
	"potato___early_blight":                              "🧴 Apply fungicides early; Practice crop rotation.",
	"potato___late_blight":                               "💧 Avoid wet conditions; Use resistant varieties.",
	"potato___healthy":                                   "🌱 Maintain soil health; Monitor regularly.",
	"raspberry___healthy":                                "🍃 Prune canes; Keep area free of weeds.",
	"soybean___healthy":                                  "🌿 Rotate crops; Watch for pests.",
	"squash___powdery_mildew":                            "🧴 Spray fungicides; Ensure good airflow.",
	"strawberry___leaf_scorch":                           "🛑 Remove infected leaves; Avoid overhead watering.",
	"strawberry___healthy":                               "🌸 Mulch and keep soil moist.",
	"tomato___bacterial_spot":                            "💧 Avoid wetting foliage; Use certified seeds.",
	"tomato___early_blight":                              "🧴 Apply fungicides early; Remove infected debris.",
	"tomato___late_blight":                               "🌧️ Improve drainage; Use resistant cultivars.",
	"tomato___leaf_mold":                                 "🌿 Ensure proper spacing; Apply fungicides if needed.",
	"tomato___septoria_leaf_spot":                        "🛑 Remove infected leaves; Rotate crops.",
	"tomato___spider_mites_two-spotted_spider_mite":      "🕷️ Use miticides; Maintain humidity.",
	"tomato___target_spot":                               "🧴 Apply copper fungicides; Remove affected plants.",
	"tomato___tomato_yellow_leaf_curl_virus":             "🦟 Control whiteflies; Remove infected plants.",
	"tomato___tomato_mosaic_virus":                       "🚫 Use resistant varieties; Practice sanitation.",
	"tomato___healthy":                                   "👍 Regular monitoring and proper care.",
	"mango___healthy":                                    "🌳 Proper irrigation and pruning.",
	"mango___anthracnose":                                "🧴 Spray fungicides during flowering; Remove infected parts.",
	"lychee___healthy":                                   "🌿 Maintain tree health and pest control.",
	"guava___healthy":                                    "🌱 Water properly; Watch for common pests.",
	"jamun___healthy":                                    "🌳 Fertilize and prune as needed.",
	"banana___healthy":                                   "🍌 Use balanced fertilizer; Prevent waterlogging.",

	// Out-of-domain classes the model was trained to recognise.
	"airplane":                  "✈️ Flying high, but definitely not a plant!",
	"automobile":                "🚗 Zooming on roads, not growing in gardens!",
	"bird":                      "🐦 Chirpy friend, not a leafy one!",
	"cat":                       "🐱 Purr-fect companion, but not a plant!",
	"deer":                      "🦌 Graceful creature roaming forests, not a plant!",
	"dog":                       "🐶 Man’s best friend, not a green buddy!",
	"frog":                      "🐸 Hopping around ponds, not photosynthesizing!",
	"horse":                     "🐴 Galloping through fields, but not rooted!",
	"ship":                      "🚢 Sailing the seas, no leaves here!",
	"truck":                     "🚚 Hauling loads, no roots attached!",
	"not_plant_cifar100_class1": "🌟 This is not a plant, but still interesting!",
	"not_plant_cifar100_class2": "🌟 Not leafy or green, but worthy nonetheless!",
	"not_plant_cifar100_class3": "🌟 Definitely not a plant, but hey, diversity matters!",
	"not_plant_cifar100_class4": "🌟 No chlorophyll here, just something else!",
	"not_plant_cifar100_class5": "🌟 Not part of the plant kingdom, but still cool!",
	"not_plant_cifar100_class6": "🌟 Not a plant, but belongs somewhere in nature!",
	"human":                     "👤 The most curious species, not a plant though!",
}

// For returns the care suggestion for label. It never returns an empty string.
func For(l string) string {
	if s, ok := suggestions[label.Normalize(l)]; ok {
		return s
	}
	return Fallback
}

// Has reports whether label has an explicit entry.
func Has(l string) bool {
	_, ok := suggestions[label.Normalize(l)]
	return ok
}

// Labels returns the canonical keys of the table in sorted order.
func Labels() []string {
	out := make([]string, 0, len(suggestions))
	for k := range suggestions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
