package dataset

// Survey data dictionary: coded answers and their labels. Question columns
// (SC/SI/TR/HM/SL/PP/OIB prefixes) share the five-point agreement scale;
// the three demographic columns carry their own code books.
var (
	answerLabels = map[string]string{
		"1": "Very disagree",
		"2": "Disagree",
		"3": "Normal",
		"4": "Agree",
		"5": "Very agree",
	}

	genderLabels = map[string]string{
		"0": "Female",
		"1": "Male",
	}

	schoolLabels = map[string]string{
		"1": "Can Tho FPT University",
		"2": "Can Tho University",
		"3": "Can Tho Medicine and Pharmacy University",
		"4": "Nam Can Tho University",
		"5": "Can Tho College",
		"6": "College of Medicine",
		"7": "Can Tho FPT Polytechnic College",
		"8": "Others",
	}

	incomeLabels = map[string]string{
		"1": "Under 3 million",
		"2": "From 3 - 5 million",
		"3": "From 5 - 10 million",
		"4": "Over 10 million",
	}

	demographicLabels = map[string]map[string]string{
		"Q2_GENDER": genderLabels,
		"Q3_SCHOOL": schoolLabels,
		"Q4_INCOME": incomeLabels,
	}

	questionPrefixes = []string{"SC", "SI", "TR", "HM", "SL", "PP", "OIB"}
)

// Process derives a decoded "<column>_LABEL" column for every coded survey
// column the data dictionary covers. Codes outside the dictionary pass
// through unchanged so nothing is lost. Pure function of its input.
func Process(ds *Dataset) *Dataset {
	out := ds.Clone()
	for col, name := range ds.Columns {
		labels, ok := labelsFor(name)
		if !ok {
			continue
		}
		out.Columns = append(out.Columns, name+"_LABEL")
		out.Types = append(out.Types, Categorical)
		for i, row := range out.Rows {
			code := canonicalCode(ds.Rows[i][col])
			label, known := labels[code]
			if !known {
				label = ds.Rows[i][col]
			}
			out.Rows[i] = append(row, label)
		}
	}
	return out
}

func labelsFor(column string) (map[string]string, bool) {
	if m, ok := demographicLabels[column]; ok {
		return m, true
	}
	for _, p := range questionPrefixes {
		if len(column) > len(p) && column[:len(p)] == p && isDigits(column[len(p):]) {
			return answerLabels, true
		}
	}
	return nil, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// canonicalCode maps numeric cell forms like "1.0" onto the dictionary keys.
func canonicalCode(cell string) string {
	if v, ok := ParseNumeric(cell); ok {
		return FormatNumeric(v)
	}
	return cell
}
