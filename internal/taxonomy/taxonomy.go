// Package taxonomy defines the fixed set of anatomical regions that the
// detector, selector and all evaluation metrics operate on. The list is
// ordered: a region's position is its class index everywhere in the system,
// and every per-region array in the pipeline is aligned to it.
package taxonomy

import "fmt"

// NumRegions is the number of anatomical regions in the taxonomy.
const NumRegions = 36

// regionNames lists the anatomical regions in index order. Index 0 is the
// first region; the background class of the detector is not part of the
// taxonomy.
var regionNames = [NumRegions]string{
	"right lung",
	"right upper lung zone",
	"right mid lung zone",
	"right lower lung zone",
	"right hilar structures",
	"right apical zone",
	"right costophrenic angle",
	"right cardiophrenic angle",
	"right hemidiaphragm",
	"left lung",
	"left upper lung zone",
	"left mid lung zone",
	"left lower lung zone",
	"left hilar structures",
	"left apical zone",
	"left costophrenic angle",
	"left cardiophrenic angle",
	"left hemidiaphragm",
	"trachea",
	"spine",
	"right clavicle",
	"left clavicle",
	"aortic arch",
	"mediastinum",
	"upper mediastinum",
	"svc",
	"cavoatrial junction",
	"right atrium",
	"descending aorta",
	"carina",
	"left upper abdomen",
	"right upper abdomen",
	"abdomen",
	"left cardiac silhouette",
	"right cardiac silhouette",
	"cardiac silhouette",
}

var regionIndex = buildIndex()

func buildIndex() map[string]int {
	m := make(map[string]int, NumRegions)
	for i, name := range regionNames {
		m[name] = i
	}
	return m
}

// Name returns the region name for the given index.
// It panics if the index is out of range, since indices only ever come from
// taxonomy-aligned arrays.
func Name(index int) string {
	if index < 0 || index >= NumRegions {
		panic(fmt.Sprintf("taxonomy: region index %d out of range", index))
	}
	return regionNames[index]
}

// Index returns the index for a region name and whether the name is known.
func Index(name string) (int, bool) {
	i, ok := regionIndex[name]
	return i, ok
}

// Names returns a copy of the ordered region name list.
func Names() []string {
	out := make([]string, NumRegions)
	copy(out, regionNames[:])
	return out
}
