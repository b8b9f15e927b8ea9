package normalize

// Canonical stat vocabulary shared by both marketplaces. A listing whose
// stats cannot all be mapped into this set is rejected as malformed.
var canonicalStats = map[string]bool{
	"ammo_max":           true,
	"cold":               true,
	"combo_count_chance": true,
	"combo_duration":     true,
	"corpus_damage":      true,
	"crit_chance":        true,
	"crit_damage":        true,
	"damage":             true,
	"electric":           true,
	"finisher":           true,
	"fire_rate":          true,
	"grineer_damage":     true,
	"heat":               true,
	"heavy_efficiency":   true,
	"impact":             true,
	"infested_damage":    true,
	"initial_combo":      true,
	"magazine":           true,
	"multishot":          true,
	"projectile_speed":   true,
	"punch_through":      true,
	"puncture":           true,
	"range":              true,
	"recoil":             true,
	"reload_speed":       true,
	"slash":              true,
	"slide_crit_chance":  true,
	"status_chance":      true,
	"status_duration":    true,
	"toxin":              true,
	"zoom":               true,
}

// riven.market encodes stats as short camel-case tokens in data attributes.
var rivenMarketStats = map[string]string{
	"Ammo":            "ammo_max",
	"ComboGainExtra":  "combo_count_chance",
	"Corpus":          "corpus_damage",
	"Grineer":         "grineer_damage",
	"Infested":        "infested_damage",
	"Cold":            "cold",
	"Combo":           "combo_duration",
	"CritChance":      "crit_chance",
	"Slide":           "slide_crit_chance",
	"CritDmg":         "crit_damage",
	"Damage":          "damage",
	"Electric":        "electric",
	"Heat":            "heat",
	"Finisher":        "finisher",
	"Speed":           "fire_rate",
	"Flight":          "projectile_speed",
	"InitC":           "initial_combo",
	"Impact":          "impact",
	"Magazine":        "magazine",
	"ComboEfficiency": "heavy_efficiency",
	"Multi":           "multishot",
	"Toxin":           "toxin",
	"Punch":           "punch_through",
	"Puncture":        "puncture",
	"Reload":          "reload_speed",
	"Range":           "range",
	"Slash":           "slash",
	"StatusC":         "status_chance",
	"StatusD":         "status_duration",
	"Recoil":          "recoil",
	"Zoom":            "zoom",
}

// warframe.market uses verbose url_name identifiers.
var warframeMarketStats = map[string]string{
	"ammo_maximum":                     "ammo_max",
	"chance_to_gain_extra_combo_count": "combo_count_chance",
	"chance_to_gain_combo_count":       "combo_count_chance",
	"damage_vs_corpus":                 "corpus_damage",
	"damage_vs_grineer":                "grineer_damage",
	"damage_vs_infested":               "infested_damage",
	"cold_damage":                      "cold",
	"combo_duration":                   "combo_duration",
	"critical_chance":                  "crit_chance",
	"critical_chance_on_slide_attack":  "slide_crit_chance",
	"critical_damage":                  "crit_damage",
	"base_damage_/_melee_damage":       "damage",
	"electric_damage":                  "electric",
	"heat_damage":                      "heat",
	"finisher_damage":                  "finisher",
	"fire_rate_/_attack_speed":         "fire_rate",
	"projectile_speed":                 "projectile_speed",
	"channeling_damage":                "initial_combo",
	"impact_damage":                    "impact",
	"magazine_capacity":                "magazine",
	"channeling_efficiency":            "heavy_efficiency",
	"multishot":                        "multishot",
	"toxin_damage":                     "toxin",
	"punch_through":                    "punch_through",
	"puncture_damage":                  "puncture",
	"reload_speed":                     "reload_speed",
	"range":                            "range",
	"slash_damage":                     "slash",
	"status_chance":                    "status_chance",
	"status_duration":                  "status_duration",
	"recoil":                           "recoil",
	"zoom":                             "zoom",
}
