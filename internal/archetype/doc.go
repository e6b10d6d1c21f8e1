// Package archetype compiles archetype definitions written in CUE.
//
// An archetype names the components that describe one kind of loggable
// object and the role of each: required, recommended or optional. The
// strict query accessors and the archetype joins use these roles.
//
// Definitions are CUE structs under the top-level "archetype" field:
//
//	archetype: Points2D: {
//		components: {
//			"strata.components.Position2D": {role: "required", type: "float64"}
//			"strata.components.Color": {role: "recommended", type: "int64"}
//		}
//	}
//
// Every definition is unified with the embedded #Archetype schema before
// compilation, so typos in roles and data types are reported with their
// CUE source position.
package archetype
