package gazetteer

// 常用地点（商圈、地铁站、规划区）
var generalPlaces = []string{
	"Orchard Road", "Marina Bay", "Sentosa", "Changi Airport", "Jurong East",
	"Jurong West", "Tampines", "Pasir Ris", "Woodlands", "Yishun", "Ang Mo Kio",
	"Bishan", "Toa Payoh", "Bukit Merah", "Queenstown", "Clementi", "Bukit Timah",
	"Novena", "Geylang", "Bedok", "Punggol", "Sengkang", "Hougang", "Serangoon",
	"Bukit Panjang", "Choa Chu Kang", "Tuas", "Pulau Ubin", "Tekong",
	"Raffles Place", "Tanjong Pagar", "City Hall", "Dhoby Ghaut", "Somerset",
	"Newton", "Stevens", "Botanic Gardens", "Holland Village", "Buona Vista",
	"Commonwealth", "Dover", "Outram Park", "HarbourFront", "Telok Blangah",
	"Labrador Park", "Pasir Panjang", "Haw Par Villa", "Kent Ridge", "one-north",
	"Singapore",
}

// 2025 年选区（集选区 GRC 与单选区 SMC），以及常见的不带后缀的基础地名
var electoralDistricts2025 = []string{
	"Aljunied", "Ang Mo Kio", "Bishan-Toa Payoh", "Chua Chu Kang", "East Coast",
	"Holland-Bukit Timah", "Jalan Besar", "Jurong-Clementi", "Marine Parade",
	"Marsiling-Yew Tee", "Nee Soon", "Pasir Ris-Punggol", "Sembawang", "Tampines",
	"Tanjong Pagar", "West Coast",
	"Bukit Batok", "Bukit Panjang", "Hong Kah North", "Hougang", "Kebun Baru",
	"MacPherson", "Marymount", "Mountbatten", "Pioneer", "Potong Pasir",
	"Punggol West", "Radin Mas", "Sengkang Central", "Yio Chu Kang", "Yuhua",
	"Jurong", "Clementi", "Marsiling", "Yew Tee", "Pasir Ris", "Sengkang",
}

// CountryName：国家名本身，作为泛化地名参与匹配但排在具体地名之后
const CountryName = "Singapore"

// DefaultEntries：内置地名表（两类合并后去重，保持首次出现顺序）
func DefaultEntries() []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]string{generalPlaces, electoralDistricts2025} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Default：以内置地名表构建匹配器，国家名作为泛化地名
func Default() *Matcher {
	return New(DefaultEntries(), Fallback(CountryName))
}
