package csi

// Entry is one MasterFormat taxonomy row. Division-level entries use a
// bare two-digit code; section-level entries carry the full code.
type Entry struct {
	Code     string
	Division string
	Title    string
	Keywords []string
}

var entries = []Entry{
	{"01 00 00", "01", "General Requirements", []string{"general conditions", "supervision", "temporary facilities", "mobilization"}},
	{"02 41 00", "02", "Demolition", []string{"demolish", "remove", "selective demolition", "abatement"}},
	{"03 30 00", "03", "Cast-in-Place Concrete", []string{"concrete", "slab", "footing", "formwork", "rebar", "cast in place"}},
	{"04 20 00", "04", "Unit Masonry", []string{"masonry", "cmu", "brick", "block", "mortar", "grout"}},
	{"05 12 00", "05", "Structural Steel Framing", []string{"steel", "beam", "column", "baseplate", "wide flange", "moment frame"}},
	{"05 50 00", "05", "Metal Fabrications", []string{"railing", "ladder", "embed", "angle", "miscellaneous metals"}},
	{"06 10 00", "06", "Rough Carpentry", []string{"framing", "blocking", "plywood", "stud", "sheathing", "wood"}},
	{"06 40 00", "06", "Architectural Woodwork", []string{"millwork", "casework", "cabinet", "countertop", "wood trim"}},
	{"07 21 00", "07", "Thermal Insulation", []string{"insulation", "batt", "rigid board", "vapor barrier"}},
	{"07 50 00", "07", "Membrane Roofing", []string{"roofing", "membrane", "tpo", "epdm", "flashing", "roof drain"}},
	{"07 92 00", "07", "Joint Sealants", []string{"sealant", "caulk", "backer rod", "expansion joint"}},
	{"08 11 00", "08", "Metal Doors and Frames", []string{"hollow metal", "door frame", "door", "hardware"}},
	{"08 41 00", "08", "Entrances and Storefronts", []string{"storefront", "entrance", "aluminum frame", "glazing"}},
	{"08 80 00", "08", "Glazing", []string{"glass", "glazing", "insulated glass", "mirror"}},
	{"09 21 00", "09", "Gypsum Board Assemblies", []string{"gypsum", "drywall", "partition", "shaft wall", "stud wall"}},
	{"09 30 00", "09", "Tiling", []string{"tile", "ceramic", "porcelain", "thinset", "grout"}},
	{"09 51 00", "09", "Acoustical Ceilings", []string{"acoustical ceiling", "ceiling tile", "suspended grid", "act"}},
	{"09 65 00", "09", "Resilient Flooring", []string{"vct", "lvt", "resilient", "rubber base", "flooring"}},
	{"09 91 00", "09", "Painting", []string{"paint", "primer", "finish coat", "epoxy coating"}},
	{"10 14 00", "10", "Signage", []string{"sign", "signage", "room identification", "wayfinding"}},
	{"10 28 00", "10", "Toilet Accessories", []string{"toilet accessory", "grab bar", "dispenser", "mirror unit"}},
	{"11 40 00", "11", "Foodservice Equipment", []string{"kitchen equipment", "foodservice", "hood", "walk-in cooler"}},
	{"12 24 00", "12", "Window Shades", []string{"shade", "roller shade", "blind"}},
	{"14 21 00", "14", "Electric Traction Elevators", []string{"elevator", "hoistway", "cab", "traction"}},
	{"21 13 00", "21", "Fire-Suppression Sprinkler Systems", []string{"sprinkler", "wet pipe", "dry pipe", "fire suppression", "standpipe"}},
	{"21 30 00", "21", "Fire Pumps", []string{"fire pump", "jockey pump", "controller"}},
	{"22 11 00", "22", "Facility Water Distribution", []string{"domestic water", "copper pipe", "water distribution", "backflow"}},
	{"22 13 00", "22", "Facility Sanitary Sewerage", []string{"sanitary", "waste", "vent", "sewer", "floor drain"}},
	{"22 34 00", "22", "Fuel-Fired Domestic Water Heaters", []string{"water heater", "gas fired", "domestic hot water"}},
	{"22 42 00", "22", "Commercial Plumbing Fixtures", []string{"fixture", "lavatory", "water closet", "urinal", "sink", "faucet"}},
	{"23 05 93", "23", "Testing, Adjusting and Balancing for HVAC", []string{"testing adjusting balancing", "tab", "air balance"}},
	{"23 31 00", "23", "HVAC Ducts and Casings", []string{"duct", "ductwork", "sheet metal", "plenum"}},
	{"23 34 00", "23", "HVAC Fans", []string{"fan", "exhaust fan", "inline fan"}},
	{"23 36 00", "23", "Air Terminal Units", []string{"vav", "terminal unit", "reheat"}},
	{"23 37 00", "23", "Air Outlets and Inlets", []string{"diffuser", "grille", "register", "louver"}},
	{"23 64 00", "23", "Packaged Water Chillers", []string{"chiller", "chilled water", "condenser"}},
	{"23 74 00", "23", "Packaged Outdoor HVAC Equipment", []string{"rooftop unit", "rtu", "packaged unit", "air handler"}},
	{"26 05 33", "26", "Raceways and Boxes", []string{"conduit", "raceway", "junction box", "emt"}},
	{"26 22 00", "26", "Low-Voltage Transformers", []string{"transformer", "dry type"}},
	{"26 24 13", "26", "Switchboards", []string{"switchboard", "switchgear", "distribution board"}},
	{"26 24 16", "26", "Panelboards", []string{"panelboard", "panel", "breaker", "circuit"}},
	{"26 27 26", "26", "Wiring Devices", []string{"receptacle", "switch", "duplex", "gfci", "device"}},
	{"26 51 00", "26", "Interior Lighting", []string{"lighting", "fixture", "luminaire", "led", "lamp"}},
	{"27 15 00", "27", "Horizontal Cabling", []string{"cat6", "data cabling", "telecommunications", "structured cabling"}},
	{"27 41 16", "27", "Integrated Audio-Video Systems", []string{"audio visual", "av", "projector", "display", "speaker"}},
	{"28 31 00", "28", "Fire Detection and Alarm", []string{"fire alarm", "smoke detector", "notification", "pull station", "annunciator"}},
	{"31 23 16", "31", "Excavation", []string{"excavation", "excavate", "earthwork", "cut and fill"}},
	{"31 23 23", "31", "Fill", []string{"backfill", "structural fill", "compaction"}},
	{"32 12 16", "32", "Asphalt Paving", []string{"asphalt", "paving", "pavement", "overlay"}},
	{"32 13 13", "32", "Concrete Paving", []string{"concrete paving", "sidewalk", "curb", "gutter"}},
	{"32 84 00", "32", "Planting Irrigation", []string{"irrigation", "sprinkler head", "drip"}},
	{"32 90 00", "32", "Planting", []string{"planting", "tree", "shrub", "sod", "landscape"}},
	{"33 41 00", "33", "Storm Utility Drainage Piping", []string{"storm drain", "catch basin", "storm sewer", "culvert"}},
}
