// Package databrowser provides an embeddable Go client for discovering
// climate model output files.
//
// Two search paths are offered:
//   - Indexed search and facet counts against a Solr index of files
//   - File-system search that walks an archive laid out by a naming template
//
// Both return lazy streams: pages and directories are only read as far as
// the caller iterates.
//
//	client, _ := databrowser.New(ctx, databrowser.WithSolr("http://localhost:8983"))
//	for res, err := range client.Search(ctx, databrowser.Constraints{
//	    "project":  {"cmip5"},
//	    "variable": {"tas", "pr"},
//	}, databrowser.SearchOptions{}) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(res.Path)
//	}
//
// By default only the latest version of each dataset is returned; set
// SearchOptions.AllVersions to see every version.
//
//	files, _ := client.FileSearch(ctx, "0", databrowser.Constraints{"model": {"mpi-esm-lr"}}, databrowser.SearchOptions{})
//	for c, err := range files {
//	    ...
//	}
package databrowser
