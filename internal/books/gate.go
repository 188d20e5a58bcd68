package books

// MissingImages enforces the picture-book image gate. For picture-book
// workflows on image-bearing steps (2, 4, 5) it returns the label of
// every entity in the step's collection that lacks an image URL. A
// non-empty result means the update must be rejected before any state
// is persisted, so the agent can generate the images and retry.
//
// Non-picture-book workflows and non-image-bearing steps always pass.
func MissingImages(stepNumber int, p Payload, pictureBook bool) []string {
	if !pictureBook {
		return nil
	}

	collection, ok := imageCollections[stepNumber]
	if !ok {
		return nil
	}

	var missing []string
	for _, e := range p.Entities(collection) {
		if !hasImage(e) {
			missing = append(missing, entityLabel(e))
		}
	}
	return missing
}
