// Package bundlebench measures how quickly texture bundles of different
// compression modes can be opened and materialized.
//
// The workflow has four stages, each usable on its own:
//
//   - Generate writes deterministic random-noise PNG textures.
//   - Assemble groups the textures into container assets of ten references.
//   - Build packs textures and groups into one bundle per compression mode
//     and stages the bundles in the runtime directory.
//   - Run opens a staged bundle, materializes every group in the background
//     and samples the awake counter once per frame.
//
// A [Pipeline] wires the stages to a [config.Config]:
//
//	cfg, err := config.NewLoader(config.WithConfigFile("bundlebench.yaml")).Load()
//	if err != nil {
//	    return err
//	}
//	p := bundlebench.NewPipeline(cfg, bundlebench.PipelineWithLogger(logger))
//	results, err := p.All(ctx)
//
// Bundles themselves are read and written by the [bundle] subpackage.
package bundlebench
