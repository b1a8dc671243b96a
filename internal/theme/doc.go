// Package theme resolves typed, immutable style bundles for the poll view.
//
// Integration example:
//
//	bundle, profile, err := theme.ResolveWithDetector(theme.VariantOcean, theme.ResolveOptions{Term: term}, nil)
//	if err != nil {
//		return err
//	}
//	renderer.SetColorProfile(profile.ColorProfile())
//	question := renderer.NewStyle().
//		Foreground(lipgloss.Color(bundle.Question.Foreground)).
//		Background(lipgloss.Color(bundle.Question.Background))
package theme
