// Package carbon converts power draw into carbon emissions and into
// human-scale equivalents (light bulbs, driving speed, sea ice, food).
package carbon

const (
	// WattsPerKilowatt converts watts to kilowatts.
	WattsPerKilowatt = 1000.0

	// IncandescentBulbWatts is the draw of a standard incandescent bulb.
	// Source: https://www.consumer.ftc.gov/articles/0164-shopping-light-bulbs
	IncandescentBulbWatts = 60.0

	// CFLBulbWatts is the draw of a CFL with the same light output.
	// Source: https://www.consumer.ftc.gov/articles/0164-shopping-light-bulbs
	CFLBulbWatts = 15.0

	// CarGramsPerMile is the tailpipe emission of a typical passenger vehicle in gCO2eq/mile.
	// Source: https://www.epa.gov/greenvehicles/greenhouse-gas-emissions-typical-passenger-vehicle
	CarGramsPerMile = 404.0

	// CarGramsPerKilometer is CarGramsPerMile per kilometer.
	CarGramsPerKilometer = 251.0

	// SeaIceMM2PerGram is September Arctic sea-ice loss per gram of CO2eq:
	// 0.3 m^2 per metric ton = 0.3 mm^2 per gram.
	// Source: Notz & Stroeve (2016), https://science.sciencemag.org/content/354/6313/747
	SeaIceMM2PerGram = 0.3

	// BeefGramsCO2PerGram is the emission of producing one gram of beef.
	// Source: Heller and Keoleian (2014), https://meals4planet.org/science/
	BeefGramsCO2PerGram = 26.45

	// TofuGramsCO2PerGram is the emission of producing one gram of tofu.
	// Source: Heller and Keoleian (2014), https://meals4planet.org/science/
	TofuGramsCO2PerGram = 0.78

	// MinWattsPerThread is the idle power of one logical CPU.
	// Source: CCF methodology typical values for modern x86 processors.
	MinWattsPerThread = 2.12

	// MaxWattsPerThread is the power of one logical CPU at 100% utilization.
	// Source: CCF methodology typical values for modern x86 processors.
	MaxWattsPerThread = 4.5
)
