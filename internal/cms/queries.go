package cms

const collectionProjection = `{
  _id,title,address,description,
  nftCollectionName,
  mainImage{asset, public_id},
  previewImage{asset, public_id},
  slug{current},
  creator -> {
    _id,name,address,
    slug{current},
  },
}`

// allCollectionsQuery lists every collection in CMS order.
const allCollectionsQuery = `*[_type == "collection"]` + collectionProjection

// collectionBySlugQuery resolves one collection; $id is the slug.
const collectionBySlugQuery = `*[_type == "collection" && slug.current == $id][0]` + collectionProjection
