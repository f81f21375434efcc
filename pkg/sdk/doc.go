// Package makan embeds the makan place search engine in a Go program.
//
// The client owns an embedding worker that vectorizes a set of places once and
// answers semantic queries against them in memory. Until the worker is ready, and
// whenever it cannot answer, searches fall back to keyword matching.
//
//	client, _ := makan.New(makan.WithEmbedder(myEmbedder))
//	defer client.Close()
//
//	_ = client.Index(ctx, []makan.Place{
//	    {ID: "durian-mpire", Name: "Durian Mpire", Category: "dessert",
//	        Descriptions: map[string]string{"en": "Durian pancakes and puffs"}},
//	})
//	res, _ := client.Search(ctx, "sweet durian", 5)
//	for _, p := range res.Places {
//	    fmt.Println(p.Name)
//	}
package makan
