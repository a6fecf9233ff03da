package recipes

// CanView reports whether the viewer may see the recipe. Owners always see
// their own recipes; everyone else needs a non-private visibility state.
// Unlisted recipes pass here because this predicate guards direct reference;
// listing applies its own public-only filter.
func CanView(recipe Recipe, viewerID string) bool {
	if recipe.DeletedAt != nil {
		return false
	}
	if viewerID != "" && viewerID == recipe.OwnerID {
		return true
	}
	switch recipe.Visibility {
	case VisibilityPublic, VisibilityUnlisted:
		return true
	default:
		return false
	}
}

// CanMutate reports whether the requester may change the recipe itself.
// Every structural write is owner-only.
func CanMutate(recipe Recipe, requesterID string) bool {
	if recipe.DeletedAt != nil {
		return false
	}
	return requesterID != "" && requesterID == recipe.OwnerID
}

// CanInteract reports whether the user may perform social actions
// (favourite, comment): the recipe must be viewable and not in the most
// restricted state.
func CanInteract(recipe Recipe, userID string) bool {
	if !CanView(recipe, userID) {
		return false
	}
	return recipe.Visibility != VisibilityPrivate
}
